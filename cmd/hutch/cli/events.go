package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and seed bridge events",
	}

	cmd.AddCommand(newEventsSeedCmd())
	cmd.AddCommand(newEventsListCmd())

	return cmd
}

// withEventService opens the store and an EventService for the duration of fn.
func withEventService(ctx context.Context, verbose bool, fn func(events *service.EventService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newLogger(os.Stderr, cfg.Logging, verbose)
	return fn(newEventService(st, cfg, logger))
}

// ---------- events seed ----------

func newEventsSeedCmd() *cobra.Command {
	var (
		count   int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Record dummy events for local development",
		Long: `Generate events from camera_001 to camera_003 spread over the last 24 hours
and record them oldest first, so the current state ends on the newest one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
			generated := generateEvents(count, time.Now().UTC(), rng)

			return withEventService(cmd.Context(), verbose, func(events *service.EventService) error {
				return runEventsSeed(cmd.Context(), cmd.OutOrStdout(), events, generated)
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of events to generate")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

var (
	seedDevices = []string{"camera_001", "camera_002", "camera_003"}
	// seedCycle is one full opening of the bridge; after it, states are random.
	seedCycle = []model.BridgeState{
		model.BridgeClosed,
		model.BridgeOpening,
		model.BridgeOpen,
		model.BridgeOpen,
		model.BridgeClosing,
		model.BridgeClosed,
	}
)

// generateEvents builds n plausible events within the 24 hours before now,
// sorted oldest first.
func generateEvents(n int, now time.Time, rng *rand.Rand) []model.Event {
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		state := model.BridgeStates[rng.IntN(len(model.BridgeStates))]
		if i < len(seedCycle) {
			state = seedCycle[i]
		}
		events = append(events, model.Event{
			EventID:          uuid.NewString(),
			SourceDeviceID:   seedDevices[rng.IntN(len(seedDevices))],
			BridgeState:      state,
			BridgeConfidence: seedConfidence(state, rng),
			Timestamp:        now.Add(-time.Duration(rng.IntN(24*60)) * time.Minute).Truncate(time.Second),
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// seedConfidence is high for settled states, lower while the bridge moves and
// lowest when the detector could not tell.
func seedConfidence(state model.BridgeState, rng *rand.Rand) float64 {
	lo, hi := 0.30, 0.60
	switch state {
	case model.BridgeOpen, model.BridgeClosed:
		lo, hi = 0.85, 0.99
	case model.BridgeOpening, model.BridgeClosing:
		lo, hi = 0.65, 0.85
	}
	return math.Round((lo+rng.Float64()*(hi-lo))*100) / 100
}

func runEventsSeed(ctx context.Context, out io.Writer, events *service.EventService, generated []model.Event) error {
	fmt.Fprintln(out, "Seeding events...")
	recorded := 0
	for _, e := range generated {
		stored, _, err := events.RecordEvent(ctx, e)
		if err != nil {
			fmt.Fprintf(out, "  failed to record %s: %v\n", e.EventID, err)
			continue
		}
		recorded++
		fmt.Fprintf(out, "  %2d/%d %-8s confidence %.2f from %s at %s\n",
			recorded, len(generated), stored.BridgeState, stored.BridgeConfidence,
			stored.SourceDeviceID, stored.Timestamp.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Recorded %d of %d events.\n", recorded, len(generated))

	state, err := events.CurrentState(ctx)
	if err != nil {
		return fmt.Errorf("read current state: %w", err)
	}
	if state != nil {
		fmt.Fprintf(out, "Current state: %s at %s (event %s)\n",
			state.BridgeState, state.Timestamp.Format("2006-01-02 15:04:05"), state.LastEventID)
	}
	if recorded < len(generated) {
		return fmt.Errorf("%d events failed to record", len(generated)-recorded)
	}
	return nil
}

// ---------- events list ----------

func newEventsListCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEventService(cmd.Context(), false, func(events *service.EventService) error {
				list, err := events.ListEvents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printEvents(cmd.OutOrStdout(), list, jsonOutput)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of events (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printEvents(out io.Writer, events []model.Event, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(out, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-8s %-6s %-12s %s\n", "TIMESTAMP", "STATE", "CONF", "DEVICE", "EVENT ID")
	for _, e := range events {
		fmt.Fprintf(out, "%-20s %-8s %-6.2f %-12s %s\n",
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.BridgeState, e.BridgeConfidence,
			e.SourceDeviceID, e.EventID)
	}
	return nil
}
