package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

const eventColumns = `event_id, source_device_id, bridge_state, bridge_confidence, timestamp`

// InsertEvent records an event. Events are immutable; inserting an event id
// that already exists returns ErrDuplicate and leaves the stored row alone.
func (s *Store) InsertEvent(ctx context.Context, e *model.Event) error {
	e.Timestamp = e.Timestamp.UTC()

	const q = `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.rebind(q),
		e.EventID, e.SourceDeviceID, string(e.BridgeState), e.BridgeConfidence, e.Timestamp)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert event %q: %w", e.EventID, ErrDuplicate)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event by id.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	var e model.Event
	q := s.rebind("SELECT " + eventColumns + " FROM events WHERE event_id = ?")
	if err := s.db.GetContext(ctx, &e, q, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// ListEvents returns events newest first. A limit of zero or less returns
// every event.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	q := "SELECT " + eventColumns + " FROM events ORDER BY timestamp DESC, event_id DESC"
	var args []interface{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	events := []model.Event{}
	if err := s.db.SelectContext(ctx, &events, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
