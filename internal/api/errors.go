// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/tmbridge/internal/log"
	"github.com/ManuGH/tmbridge/internal/ui"
)

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, kind, detail string) {
	writeJSON(w, code, errorResponse{
		Error:     kind,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeError maps presentation errors to HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ui.ErrInvalidInput):
		writeProblem(w, r, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, ui.ErrActionUnavailable):
		writeProblem(w, r, http.StatusConflict, "action_unavailable", err.Error())
	case errors.Is(err, ui.ErrPromptNotFound):
		writeProblem(w, r, http.StatusNotFound, "prompt_not_found", err.Error())
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "api.command_failed").Msg("command failed")
		writeProblem(w, r, http.StatusBadGateway, "command_failed", err.Error())
	}
}
