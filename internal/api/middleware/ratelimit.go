// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ManuGH/tmbridge/internal/log"
)

var httpRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tmbridge_http_rate_limited_total",
	Help: "Control requests rejected by the per-client limiter",
}, []string{"method"})

// RateLimitConfig bounds how many control requests one client may send.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Key groups requests; the client IP when nil.
	Key func(r *http.Request) (string, error)
}

// RateLimit limits control requests per client with an httprate sliding
// window. Probe endpoints bypass the limiter.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	key := cfg.Key
	if key == nil {
		key = httprate.KeyByIP
	}
	retryAfter := strconv.Itoa(int(math.Max(1, math.Ceil(cfg.Window.Seconds()))))

	limiter := httprate.Limit(cfg.Requests, cfg.Window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpRateLimited.WithLabelValues(r.Method).Inc()
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Debug().
				Str(log.FieldEvent, "http.rate_limited").
				Str("remote_addr", r.RemoteAddr).
				Msg("control request rate limited")
			w.Header().Set("Retry-After", retryAfter)
			writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many control requests, retry after "+retryAfter+"s")
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePath(r) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
