// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PermissionFlowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_permission_flows_total",
		Help: "Permission request flows by escalation outcome",
	}, []string{"escalation"}) // escalation=not_needed|declined|requested|aborted

	PermissionDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tmbridge_permission_unmapped_total",
		Help: "Permission identifiers requested by the SDK that have no platform mapping",
	})

	permissionFlowSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tmbridge_permission_flow_seconds",
		Help:    "Duration of permission flows including user interaction",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
	})
)

// ObservePermissionFlow records a completed permission flow.
func ObservePermissionFlow(escalation string, unmapped int, seconds float64) {
	PermissionFlowsTotal.WithLabelValues(nonEmpty(escalation)).Inc()
	if unmapped > 0 {
		PermissionDroppedTotal.Add(float64(unmapped))
	}
	permissionFlowSeconds.Observe(seconds)
}
