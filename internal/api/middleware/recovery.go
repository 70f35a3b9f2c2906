// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/tmbridge/internal/log"
)

const maxStackBytes = 8 << 10

var httpPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tmbridge_http_panics_total",
	Help: "Panics recovered in control handlers per route",
}, []string{"route"})

// Recoverer turns a handler panic into a 500 error envelope. Aborted
// responses (http.ErrAbortHandler) are re-raised for net/http to handle.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			if len(stack) > maxStackBytes {
				stack = stack[:maxStackBytes]
			}
			route := routePattern(r)
			httpPanics.WithLabelValues(route).Inc()

			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Error().
				Str(log.FieldEvent, "http.panic").
				Str("method", r.Method).
				Str("route", route).
				Interface("panic", rec).
				Bytes("stack", stack).
				Msg("recovered panic in control handler")

			writeError(w, r, http.StatusInternalServerError, "internal_error", "")
		}()

		next.ServeHTTP(w, r)
	})
}
