// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestPermissionAttributes(t *testing.T) {
	attrs := PermissionAttributes(3, 1, "declined")
	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}
	verifyIntAttribute(t, attrs, PermissionCountKey, 3)
	verifyIntAttribute(t, attrs, PermissionUnmappedKey, 1)
	verifyAttribute(t, attrs, PermissionEscalation, "declined")

	if got := PermissionAttributes(0, 0, ""); len(got) != 2 {
		t.Errorf("Expected escalation to be omitted when empty, got %d attributes", len(got))
	}
}

func TestCommandAndErrorAttributes(t *testing.T) {
	verifyAttribute(t, CommandAttributes("startRecording"), CommandKey, "startRecording")

	attrs := ErrorAttributes("transport")
	verifyAttribute(t, attrs, ErrorTypeKey, "transport")
	for _, a := range attrs {
		if string(a.Key) == ErrorKey && !a.Value.AsBool() {
			t.Error("Expected error=true")
		}
	}
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Attribute %s: expected %q, got %q", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Attribute %s: expected %d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
