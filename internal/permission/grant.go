// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import "math"

// Status strings reported by the OS layer.
const (
	GrantGranted       = "granted"
	GrantDenied        = "denied"
	GrantNeverAskAgain = "never_ask_again"
)

// Results maps each requested token to the raw value the OS layer reported.
// Values are usually status strings, some platforms report booleans.
type Results map[Permission]any

// Truthy applies the loose truthiness of the host platform: false, nil, "",
// and numeric zero are falsy, everything else (including "denied") is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	default:
		return true
	}
}

// Granted reports whether v is exactly the "granted" status string.
func Granted(v any) bool {
	s, ok := v.(string)
	return ok && s == GrantGranted
}

// BackgroundEligible decides whether the background-location escalation is
// offered. Fine location only has to be truthy while coarse location must
// equal "granted"; the two checks are kept asymmetric on purpose.
func BackgroundEligible(res Results) bool {
	return Truthy(res[AccessFineLocation]) || Granted(res[AccessCoarseLocation])
}
