// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import "time"

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)
