package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

const currentStateSlot = 1

// GetCurrentState returns the current bridge state, or ErrNotFound if no
// event has been reconciled yet.
func (s *Store) GetCurrentState(ctx context.Context) (*model.CurrentState, error) {
	var st model.CurrentState
	q := s.rebind(`SELECT state_id, bridge_state, timestamp, last_event_id, version
		FROM current_state WHERE slot = ?`)
	if err := s.db.GetContext(ctx, &st, q, currentStateSlot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get current state: %w", err)
	}
	return &st, nil
}

// UpsertCurrentState replaces the singleton current-state row with next,
// provided the row still matches prev. A nil prev means no row was present
// when the caller read it. If another writer got there first, ErrConflict is
// returned and nothing is written. On success next.Version holds the stored
// version.
func (s *Store) UpsertCurrentState(ctx context.Context, prev, next *model.CurrentState) error {
	next.Timestamp = next.Timestamp.UTC()

	if prev == nil {
		const q = `INSERT INTO current_state
			(slot, state_id, bridge_state, timestamp, last_event_id, version)
			VALUES (?, ?, ?, ?, ?, 1)`
		_, err := s.db.ExecContext(ctx, s.rebind(q),
			currentStateSlot, next.StateID, string(next.BridgeState), next.Timestamp, next.LastEventID)
		if err != nil {
			if isDuplicate(err) {
				return ErrConflict
			}
			return fmt.Errorf("insert current state: %w", err)
		}
		next.Version = 1
		return nil
	}

	const q = `UPDATE current_state
		SET state_id = ?, bridge_state = ?, timestamp = ?, last_event_id = ?, version = version + 1
		WHERE slot = ? AND version = ?`
	result, err := s.db.ExecContext(ctx, s.rebind(q),
		next.StateID, string(next.BridgeState), next.Timestamp, next.LastEventID,
		currentStateSlot, prev.Version)
	if err != nil {
		return fmt.Errorf("update current state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update current state rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	next.Version = prev.Version + 1
	return nil
}
