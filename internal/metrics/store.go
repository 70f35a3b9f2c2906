// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CredentialStoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_credential_store_ops_total",
		Help: "Credential store operations",
	}, []string{"backend", "op", "result"}) // result=success/error

	credentialStoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmbridge_credential_store_op_seconds",
		Help:    "Credential store operation latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "op"})
)

// ObserveCredentialStoreOp records one store operation.
func ObserveCredentialStoreOp(backend, op string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CredentialStoreOps.WithLabelValues(nonEmpty(backend), op, result).Inc()
	credentialStoreLatency.WithLabelValues(nonEmpty(backend), op).Observe(seconds)
}
