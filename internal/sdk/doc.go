// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sdk holds the contract shared by every component that talks to the
// native metrics SDK: lifecycle states and their advisory action sets, the
// three event channels, and the command surface of the native module.
//
// The lifecycle is reconciled, not enforced. The native side is the
// authority; this package only classifies what it reports.
package sdk
