package model

import (
	"errors"
	"fmt"
	"time"
)

// BridgeState is the observed condition of the bridge.
type BridgeState string

const (
	BridgeClosed  BridgeState = "CLOSED"
	BridgeOpening BridgeState = "OPENING"
	BridgeOpen    BridgeState = "OPEN"
	BridgeClosing BridgeState = "CLOSING"
	BridgeUnknown BridgeState = "UNKNOWN"
)

// BridgeStates lists every valid bridge state.
var BridgeStates = []BridgeState{BridgeClosed, BridgeOpening, BridgeOpen, BridgeClosing, BridgeUnknown}

// Valid reports whether s is one of the known bridge states.
func (s BridgeState) Valid() bool {
	for _, v := range BridgeStates {
		if s == v {
			return true
		}
	}
	return false
}

// Event is an immutable observation reported by a camera or sensor. The
// event id is assigned by the producer and is globally unique.
type Event struct {
	EventID          string      `json:"event_id" db:"event_id"`
	SourceDeviceID   string      `json:"source_device_id" db:"source_device_id"`
	BridgeState      BridgeState `json:"bridge_state" db:"bridge_state"`
	BridgeConfidence float64     `json:"bridge_confidence" db:"bridge_confidence"`
	Timestamp        time.Time   `json:"timestamp" db:"timestamp"`
}

// ErrInvalidEvent is wrapped by Event.Validate failures.
var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the event fields a producer must supply.
func (e *Event) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.SourceDeviceID == "":
		return fmt.Errorf("%w: source_device_id is required", ErrInvalidEvent)
	case !e.BridgeState.Valid():
		return fmt.Errorf("%w: unknown bridge_state %q", ErrInvalidEvent, e.BridgeState)
	case e.BridgeConfidence < 0 || e.BridgeConfidence > 1:
		return fmt.Errorf("%w: bridge_confidence must be within [0, 1]", ErrInvalidEvent)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}
