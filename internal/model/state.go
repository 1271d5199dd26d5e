package model

import "time"

// CurrentState is the single reconciled record describing the latest bridge
// state. Version is the optimistic-concurrency counter of the stored row and
// is not part of the API.
type CurrentState struct {
	StateID     string      `json:"state_id" db:"state_id"`
	BridgeState BridgeState `json:"bridge_state" db:"bridge_state"`
	Timestamp   time.Time   `json:"timestamp" db:"timestamp"`
	LastEventID string      `json:"last_event_id" db:"last_event_id"`
	Version     int64       `json:"-" db:"version"`
}
