package engine

import "errors"

// State is the engine lifecycle state. Transitions only move forward:
// Uninitialized → Configured → Running → Stopped. Stopped is terminal.
type State int32

const (
	StateUninitialized State = iota
	StateConfigured
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrState reports an operation that is not allowed in the current state.
var ErrState = errors.New("invalid engine state")
