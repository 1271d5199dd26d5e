package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

// EventStore is the persistence the event service needs.
type EventStore interface {
	InsertEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
	ListEvents(ctx context.Context, limit int) ([]model.Event, error)
}

// EventService records bridge events and keeps the current state in step.
type EventService struct {
	events     EventStore
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewEventService creates an EventService.
func NewEventService(events EventStore, reconciler *Reconciler, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		events:     events,
		reconciler: reconciler,
		logger:     logger,
	}
}

// RecordEvent validates and stores e, then reconciles the current state.
// created is false when the event id was already recorded; the stored event
// is returned in that case and is reconciled only when no state exists or
// the stored event is not older than the current state. A reconcile failure
// is logged and does not fail the call, because the event itself is already
// durable.
func (s *EventService) RecordEvent(ctx context.Context, e model.Event) (stored *model.Event, created bool, err error) {
	if err := e.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	stored = &e
	created = true
	if err := s.events.InsertEvent(ctx, stored); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, false, fmt.Errorf("record event: %w", err)
		}
		existing, getErr := s.events.GetEvent(ctx, e.EventID)
		if getErr != nil {
			return nil, false, fmt.Errorf("load duplicate event: %w", getErr)
		}
		s.logger.Debug("duplicate event delivery", "event_id", e.EventID)
		stored, created = existing, false

		if !s.shouldReconcileDuplicate(ctx, stored) {
			return stored, false, nil
		}
	}

	// The event is committed; finish reconciling even if the caller goes away.
	if _, err := s.reconciler.Reconcile(context.WithoutCancel(ctx), stored); err != nil {
		s.logger.Warn("reconcile failed; current state may be stale",
			"event_id", stored.EventID, "error", err)
	}
	return stored, created, nil
}

// shouldReconcileDuplicate reports whether a redelivered event may still move
// the current state. A redelivery heals a state left stale by an earlier
// reconcile failure but never rolls a newer state back.
func (s *EventService) shouldReconcileDuplicate(ctx context.Context, e *model.Event) bool {
	current, err := s.reconciler.CurrentState(ctx)
	if err != nil {
		s.logger.Warn("failed to read current state for duplicate event",
			"event_id", e.EventID, "error", err)
		return false
	}
	if current != nil && e.Timestamp.Before(current.Timestamp) {
		s.logger.Debug("duplicate event is older than current state; not reconciling",
			"event_id", e.EventID, "current_event_id", current.LastEventID)
		return false
	}
	return true
}

// ListEvents returns recorded events, newest first. A limit of zero or less
// returns all of them.
func (s *EventService) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	return s.events.ListEvents(ctx, limit)
}

// GetEvent returns a single event by id. A missing event wraps
// store.ErrNotFound.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	return s.events.GetEvent(ctx, eventID)
}

// CurrentState returns the reconciled bridge state, or nil if no event has
// been recorded.
func (s *EventService) CurrentState(ctx context.Context) (*model.CurrentState, error) {
	return s.reconciler.CurrentState(ctx)
}
