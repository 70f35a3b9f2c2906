// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sdk

import "context"

// Command names of the native module surface.
const (
	CommandInitialize     = "initializeSdk"
	CommandStartRecording = "startRecording"
	CommandStopRecording  = "stopRecording"
	CommandLogMetadata    = "logMetadata"
)

// CredentialKey is the persisted key of the activation credential.
const CredentialKey = "truemetricsApiKey"

// MetadataEntry is one user supplied key/value pair.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NativeModule is the command surface of the native SDK module. Commands are
// fire-and-forget: a nil error only means the command was handed over, the
// outcome arrives through the event channels. Implementations must tolerate
// redundant InitializeSdk calls.
type NativeModule interface {
	InitializeSdk(ctx context.Context, apiKey string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	LogMetadata(ctx context.Context, entry MetadataEntry) error
}
