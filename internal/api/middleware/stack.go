// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	TracingService string // empty disables tracing
	RateLimit      int    // requests per window and client IP, 0 disables
	RateWindow     time.Duration
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Metrics())
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	r.Use(AccessLog)
	if cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(RateLimit(RateLimitConfig{Requests: cfg.RateLimit, Window: window}))
	}
}
