// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sdk

// Action is a user-facing command the UI may expose.
type Action string

const (
	ActionStartRecording Action = "start_recording"
	ActionStopRecording  Action = "stop_recording"
)

// ActionSet is the advisory set of actions for one lifecycle state.
type ActionSet map[Action]struct{}

// Has reports whether a is part of the set.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

var allowedActions = map[Kind]ActionSet{
	KindUninitialized: {},
	KindInitialized:   {ActionStartRecording: {}},
	KindRecording:     {ActionStopRecording: {}},
	KindStopped:       {ActionStartRecording: {}},
	KindUnknown:       {},
}

// AllowedActions returns the actions the UI should expose in state s.
// Unknown states expose nothing. The set is advisory: the controller does not
// reject commands outside of it, and the native side stays the authority.
func AllowedActions(s LifecycleState) ActionSet {
	src := allowedActions[s.Kind()]
	out := make(ActionSet, len(src))
	for a := range src {
		out[a] = struct{}{}
	}
	return out
}

// Transition is one edge of the advisory lifecycle.
type Transition struct {
	From    Kind
	Command string
	To      Kind
}

// Lifecycle documents the expected effect of each command. It is used by the
// simulator and by tests; the bridge never consults it when applying events.
var Lifecycle = []Transition{
	{From: KindUninitialized, Command: CommandInitialize, To: KindInitialized},
	{From: KindInitialized, Command: CommandStartRecording, To: KindRecording},
	{From: KindRecording, Command: CommandStopRecording, To: KindStopped},
	{From: KindStopped, Command: CommandStartRecording, To: KindRecording},
}

// Next returns the state the native side is expected to report after command
// is issued in state from. ok is false when the command has no documented
// effect in that state.
func Next(from LifecycleState, command string) (LifecycleState, bool) {
	for _, t := range Lifecycle {
		if t.From == from.Kind() && t.Command == command {
			return stateForKind(t.To), true
		}
	}
	return from, false
}

func stateForKind(k Kind) LifecycleState {
	switch k {
	case KindInitialized:
		return StateInitialized
	case KindRecording:
		return StateRecordingInProgress
	case KindStopped:
		return StateRecordingStopped
	default:
		return StateUninitialized
	}
}
