// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package version carries build metadata injected via ldflags.
package version

import "fmt"

var (
	// Version is the current application version.
	// It should be populated by the build system (ldflags).
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders version, commit and date on one line.
func String() string {
	return fmt.Sprintf("tmbridge %s (commit %s, built %s)", Version, Commit, Date)
}
