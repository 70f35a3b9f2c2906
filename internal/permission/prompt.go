// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import "context"

// Prompt is a cancelable confirmation shown to the user.
type Prompt struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	CancelLabel  string `json:"cancelLabel"`
	ConfirmLabel string `json:"confirmLabel"`
	Cancelable   bool   `json:"cancelable"`
}

// BackgroundLocationPrompt explains the background-location escalation.
func BackgroundLocationPrompt() Prompt {
	return Prompt{
		Title: "Background location",
		Message: "Application needs permission to access background location to work reliably when in background. " +
			"Select \"Allow all the time\" on the settings screen.",
		CancelLabel:  "Cancel",
		ConfirmLabel: "Open Settings",
		Cancelable:   true,
	}
}

// Prompter asks the user to confirm p. It returns true only on explicit
// acknowledgement; cancel and dismiss both return false.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// DeclineAll is a Prompter that never escalates.
type DeclineAll struct{}

func (DeclineAll) Confirm(context.Context, Prompt) (bool, error) { return false, nil }
