// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package credential persists the single activation credential of the native
// SDK across process restarts.
package credential

import (
	"context"
	"errors"
)

// Key is the key the credential is stored under in every backend.
const Key = "truemetricsApiKey"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("credential store closed")

// Store is the system-of-record for the activation credential.
//
// Get returns the empty string when nothing was ever stored. Set with an
// empty value is a no-op: once a credential is written this layer never
// clears it.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Close() error
}
