// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package validate

import "github.com/rs/zerolog"

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// LogLevel accepts the zerolog level names, the same set log.SetLevel
// applies on reload.
func (v *Validator) LogLevel(field, value string) {
	if value == "" {
		v.AddError(field, "log level cannot be empty", value)
		return
	}
	if _, err := zerolog.ParseLevel(value); err != nil {
		v.AddError(field, "unknown log level (trace, debug, info, warn, error, fatal, panic, disabled)", value)
	}
}

// LogFormat accepts json or console.
func (v *Validator) LogFormat(field, value string) {
	v.OneOf(field, value, []string{LogFormatJSON, LogFormatConsole})
}
