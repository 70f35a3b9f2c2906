// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package permission runs the two-stage OS permission escalation requested
// by the native SDK.
package permission

// Permission is a platform permission token understood by the OS layer.
type Permission string

const (
	ReadPhoneState           Permission = "android.permission.READ_PHONE_STATE"
	ActivityRecognition      Permission = "android.permission.ACTIVITY_RECOGNITION"
	AccessCoarseLocation     Permission = "android.permission.ACCESS_COARSE_LOCATION"
	AccessFineLocation       Permission = "android.permission.ACCESS_FINE_LOCATION"
	AccessBackgroundLocation Permission = "android.permission.ACCESS_BACKGROUND_LOCATION"
)

// tokenTable maps identifiers sent by the SDK to platform tokens. Background
// location is deliberately absent: it is only requested through the explicit
// escalation step.
var tokenTable = map[string]Permission{
	"android.permission.READ_PHONE_STATE":       ReadPhoneState,
	"android.permission.ACTIVITY_RECOGNITION":   ActivityRecognition,
	"android.permission.ACCESS_COARSE_LOCATION": AccessCoarseLocation,
	"android.permission.ACCESS_FINE_LOCATION":   AccessFineLocation,
}

// Map translates identifiers into tokens, preserving request order.
// Identifiers without a mapping are returned in unmapped.
func Map(identifiers []string) (tokens []Permission, unmapped []string) {
	tokens = make([]Permission, 0, len(identifiers))
	for _, id := range identifiers {
		if p, ok := tokenTable[id]; ok {
			tokens = append(tokens, p)
			continue
		}
		unmapped = append(unmapped, id)
	}
	return tokens, unmapped
}

// IncludesLocation reports whether identifiers ask for any location access.
func IncludesLocation(identifiers []string) bool {
	for _, id := range identifiers {
		switch Permission(id) {
		case AccessCoarseLocation, AccessFineLocation, AccessBackgroundLocation:
			return true
		}
	}
	return false
}
