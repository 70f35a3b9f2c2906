// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

var (
	// ErrMissingHandler is returned when the manager has no HTTP handler.
	ErrMissingHandler = errors.New("HTTP handler is required")

	// ErrMissingRuntime is returned when an App is created without a runtime.
	ErrMissingRuntime = errors.New("runtime is required")

	// ErrManagerAlreadyStarted is returned when Start is called twice.
	ErrManagerAlreadyStarted = errors.New("manager already started")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")

	// ErrUnknownNativeMode is returned for a native mode other than client or simulator.
	ErrUnknownNativeMode = errors.New("unknown native mode")
)
