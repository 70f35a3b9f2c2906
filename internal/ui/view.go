// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ui is the headless presentation model: it renders bridge snapshots
// into a view, validates user input and brokers confirmation dialogs.
package ui

import (
	"github.com/ManuGH/tmbridge/internal/bridge"
	"github.com/ManuGH/tmbridge/internal/permission"
	"github.com/ManuGH/tmbridge/internal/sdk"
)

// View is what the user sees after one render pass.
type View struct {
	Version uint64             `json:"version"`
	Status  string             `json:"status"`
	State   sdk.LifecycleState `json:"state"`

	ShowCredentialEntry bool `json:"showCredentialEntry"`
	ShowStart           bool `json:"showStart"`
	ShowStop            bool `json:"showStop"`
	ShowMetadataForm    bool `json:"showMetadataForm"`

	ErrorBanner string              `json:"errorBanner,omitempty"`
	Prompts     []permission.Prompt `json:"prompts"`
	Permission  *permission.Outcome `json:"permission,omitempty"`
}

// BuildView renders snap. Recording controls and the metadata form are only
// offered once a credential is stored; the credential entry only before.
func BuildView(snap bridge.Snapshot, hasCredential bool) View {
	v := View{
		Version:             snap.Version,
		Status:              "SDK status: " + string(snap.State),
		State:               snap.State,
		ShowCredentialEntry: !hasCredential,
		ShowMetadataForm:    hasCredential,
		Permission:          snap.Permission,
		Prompts:             []permission.Prompt{},
	}
	if hasCredential {
		allowed := snap.Allowed()
		v.ShowStart = allowed.Has(sdk.ActionStartRecording)
		v.ShowStop = allowed.Has(sdk.ActionStopRecording)
	}
	if snap.Error != "" {
		v.ErrorBanner = "Error: " + snap.Error
	}
	return v
}
