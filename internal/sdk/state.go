// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sdk

// LifecycleState is the status string reported by the native SDK. Values
// outside the known set are kept verbatim.
type LifecycleState string

const (
	StateUninitialized       LifecycleState = "UNINITIALIZED"
	StateInitialized         LifecycleState = "INITIALIZED"
	StateRecordingInProgress LifecycleState = "RECORDING_IN_PROGRESS"
	StateRecordingStopped    LifecycleState = "RECORDING_STOPPED"
)

// Kind is the tagged classification of a LifecycleState.
type Kind int

const (
	KindUnknown Kind = iota
	KindUninitialized
	KindInitialized
	KindRecording
	KindStopped
)

func (k Kind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindInitialized:
		return "initialized"
	case KindRecording:
		return "recording"
	case KindStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Kind classifies s. Nothing reported yet counts as uninitialized.
func (s LifecycleState) Kind() Kind {
	switch s {
	case "", StateUninitialized:
		return KindUninitialized
	case StateInitialized:
		return KindInitialized
	case StateRecordingInProgress:
		return KindRecording
	case StateRecordingStopped:
		return KindStopped
	default:
		return KindUnknown
	}
}

// Known reports whether s is one of the recognised states.
func (s LifecycleState) Known() bool {
	return s.Kind() != KindUnknown
}

// MetricLabel maps s onto a bounded label set.
func (s LifecycleState) MetricLabel() string {
	if s == "" {
		return string(StateUninitialized)
	}
	if !s.Known() {
		return "unknown"
	}
	return string(s)
}

// MetricLabels is every value MetricLabel can return.
func MetricLabels() []string {
	return []string{
		string(StateUninitialized),
		string(StateInitialized),
		string(StateRecordingInProgress),
		string(StateRecordingStopped),
		"unknown",
	}
}
