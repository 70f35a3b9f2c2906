// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sdk

// Event channel names emitted by the native module.
const (
	ChannelState       = "SDK_STATE"
	ChannelPermissions = "SDK_PERMISSIONS"
	ChannelError       = "SDK_ERROR"
)

// Bus topics. All native events share TopicEvents so that one subscriber sees
// them in wire order; the payload type names the channel. The bridge
// publishes reconciled snapshots on TopicSnapshot.
const (
	TopicEvents   = "sdk.events"
	TopicSnapshot = "bridge.snapshot"
)

// StateChanged is the SDK_STATE payload.
type StateChanged struct {
	NewState LifecycleState `json:"newState"`
}

// PermissionsRequested is the SDK_PERMISSIONS payload.
type PermissionsRequested struct {
	Permissions []string `json:"permissions"`
}

// ErrorReported is the SDK_ERROR payload.
type ErrorReported struct {
	Error string `json:"error"`
}

// ChannelOf returns the SDK channel an event payload belongs to.
func ChannelOf(msg any) (string, bool) {
	switch msg.(type) {
	case StateChanged, *StateChanged:
		return ChannelState, true
	case PermissionsRequested, *PermissionsRequested:
		return ChannelPermissions, true
	case ErrorReported, *ErrorReported:
		return ChannelError, true
	default:
		return "", false
	}
}
