// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldFlowID    = "flow_id"
	FieldPromptID  = "prompt_id"
	FieldFrameID   = "frame_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldChannel   = "channel"
	FieldCommand   = "command"
	FieldBackend   = "backend"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Permission fields
	FieldPermissions = "permissions"
	FieldEscalation  = "escalation"

	// Network fields
	FieldAddress = "address"
	FieldConnID  = "conn_id"
)
