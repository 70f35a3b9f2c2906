// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bridge

import (
	"fmt"

	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// ErrorClearPolicy decides when a reported SDK error stops being shown.
type ErrorClearPolicy string

const (
	// ClearOnStateChange clears the error slot on the next state event.
	ClearOnStateChange ErrorClearPolicy = "on_state_change"
	// ClearNever keeps the last error until another error replaces it.
	ClearNever ErrorClearPolicy = "never"
)

// ParseErrorClearPolicy validates a configured policy. Empty selects
// ClearOnStateChange.
func ParseErrorClearPolicy(s string) (ErrorClearPolicy, error) {
	switch ErrorClearPolicy(s) {
	case "", ClearOnStateChange:
		return ClearOnStateChange, nil
	case ClearNever:
		return ClearNever, nil
	default:
		return "", fmt.Errorf("unknown error clear policy %q", s)
	}
}

// Snapshot is the reconciled, observable bridge state.
type Snapshot struct {
	// Version increases with every applied change.
	Version uint64             `json:"version"`
	State   sdk.LifecycleState `json:"state"`
	Error   string             `json:"error,omitempty"`
	// Permission is the outcome of the most recent completed permission flow.
	Permission *permission.Outcome `json:"permission,omitempty"`
}

// Kind classifies the current lifecycle state.
func (s Snapshot) Kind() sdk.Kind { return s.State.Kind() }

// Allowed returns the advisory action set of the current state.
func (s Snapshot) Allowed() sdk.ActionSet { return sdk.AllowedActions(s.State) }
