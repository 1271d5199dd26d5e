package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

func newStateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the current bridge state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEventService(cmd.Context(), false, func(events *service.EventService) error {
				state, err := events.CurrentState(cmd.Context())
				if err != nil {
					return err
				}
				return printState(cmd.OutOrStdout(), state, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON (null when no event has been recorded)")

	return cmd
}

func printState(out io.Writer, state *model.CurrentState, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(out, state)
	}
	if state == nil {
		fmt.Fprintln(out, "No bridge state yet. Record an event or run 'hutch events seed'.")
		return nil
	}
	fmt.Fprintf(out, "Bridge:     %s\n", state.BridgeState)
	fmt.Fprintf(out, "Since:      %s\n", state.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Last event: %s\n", state.LastEventID)
	return nil
}
