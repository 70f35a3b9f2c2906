// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package permission

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome metric and attribute names.
const (
	OutcomeMetric = "tmbridge_permission_outcome_total"

	AttrEscalation = "escalation"
	AttrFailed     = "failed"
)

// emitOutcome records a finished flow on the global meter provider.
func emitOutcome(ctx context.Context, out Outcome, failed bool) {
	// Runtime provider lookup so tests and late SDK installs take effect.
	meter := otel.GetMeterProvider().Meter("tmbridge.permission")
	counter, err := meter.Int64Counter(OutcomeMetric, metric.WithDescription("Completed permission flows by escalation outcome"))
	if err != nil {
		return
	}
	counter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String(AttrEscalation, string(out.Escalation)),
		attribute.Bool(AttrFailed, failed),
	))
}
