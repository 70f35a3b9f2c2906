// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the bridge.
const (
	CommandKey = "sdk.command"
	StateKey   = "sdk.state"

	PermissionCountKey    = "permission.requested"
	PermissionUnmappedKey = "permission.unmapped"
	PermissionEscalation  = "permission.escalation"

	StoreBackendKey = "store.backend"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// CommandAttributes creates span attributes for a native command.
func CommandAttributes(command string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(CommandKey, command)}
}

// PermissionAttributes creates span attributes for a permission flow.
func PermissionAttributes(requested, unmapped int, escalation string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(PermissionCountKey, requested),
		attribute.Int(PermissionUnmappedKey, unmapped),
	}
	if escalation != "" {
		attrs = append(attrs, attribute.String(PermissionEscalation, escalation))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
