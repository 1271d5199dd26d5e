package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

// ErrReconcileConflict is returned when the current-state row kept changing
// underneath the reconciler for every retry.
var ErrReconcileConflict = errors.New("current state changed concurrently; retries exhausted")

// DefaultReconcileRetries bounds compare-and-swap attempts per event.
const DefaultReconcileRetries = 3

// StateStore is the persistence the reconciler needs.
type StateStore interface {
	GetCurrentState(ctx context.Context) (*model.CurrentState, error)
	UpsertCurrentState(ctx context.Context, prev, next *model.CurrentState) error
}

// ReconcilerConfig tunes the reconciler.
type ReconcilerConfig struct {
	// MaxRetries caps how many times a lost compare-and-swap is retried.
	MaxRetries int
	// RejectOutOfOrder skips events older than the stored state instead of
	// letting the last write win.
	RejectOutOfOrder bool
}

// Reconciler folds events into the single current-state record.
type Reconciler struct {
	store  StateStore
	cfg    ReconcilerConfig
	logger *slog.Logger
	newID  func() string
}

// NewReconciler creates a Reconciler backed by st.
func NewReconciler(st StateStore, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultReconcileRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:  st,
		cfg:    cfg,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// CurrentState returns the stored state, or nil if nothing has been
// reconciled yet.
func (r *Reconciler) CurrentState(ctx context.Context) (*model.CurrentState, error) {
	st, err := r.store.GetCurrentState(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

// Reconcile applies e to the current state. Re-applying the event that
// produced the current state is a no-op that returns the stored state.
func (r *Reconciler) Reconcile(ctx context.Context, e *model.Event) (*model.CurrentState, error) {
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		current, err := r.CurrentState(ctx)
		if err != nil {
			return nil, fmt.Errorf("read current state: %w", err)
		}

		if current != nil && current.LastEventID == e.EventID {
			return current, nil
		}

		if r.cfg.RejectOutOfOrder && current != nil && e.Timestamp.Before(current.Timestamp) {
			r.logger.Debug("skipping out-of-order event",
				"event_id", e.EventID,
				"event_timestamp", e.Timestamp,
				"state_timestamp", current.Timestamp)
			return current, nil
		}

		next := &model.CurrentState{
			StateID:     r.newID(),
			BridgeState: e.BridgeState,
			Timestamp:   e.Timestamp,
			LastEventID: e.EventID,
		}

		err = r.store.UpsertCurrentState(ctx, current, next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("write current state: %w", err)
		}
		r.logger.Debug("current state changed during reconcile, retrying",
			"event_id", e.EventID, "attempt", attempt)
	}
	return nil, ErrReconcileConflict
}
