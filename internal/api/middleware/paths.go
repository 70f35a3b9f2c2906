// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tmbridge/internal/log"
)

// routeUnmatched labels requests that no route handled.
const routeUnmatched = "unmatched"

// probePath reports liveness and scrape endpoints. They are neither traced
// nor rate limited.
func probePath(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	}
	return false
}

// routePattern returns the chi pattern that served r. Only meaningful after
// the router has dispatched the request.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return routeUnmatched
}

// errorBody mirrors the API error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     code,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}
