// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/tmbridge/internal/log"
)

// AttrRequestID carries the X-Request-ID on HTTP spans.
const AttrRequestID = "tmbridge.request_id"

// OTelHTTP traces control requests. Spans start as "METHOD path" and are
// renamed to the matched route once chi has dispatched, so every prompt id
// shares one span name.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		annotate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			span := trace.SpanFromContext(r.Context())
			if pattern := routePattern(r); pattern != routeUnmatched {
				span.SetName(r.Method + " " + pattern)
			}
			if id := log.RequestIDFromContext(r.Context()); id != "" {
				span.SetAttributes(attribute.String(AttrRequestID, id))
			}
		})
		return otelhttp.NewHandler(annotate, serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

func shouldTrace(r *http.Request) bool {
	return !probePath(r)
}
