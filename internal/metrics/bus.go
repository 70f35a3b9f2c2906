// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics defines the Prometheus collectors of the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_bus_published_total",
		Help: "Total number of messages delivered by the in-memory bus per topic",
	}, []string{"topic"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_bus_dropped_total",
		Help: "Total number of in-memory bus publishes abandoned by topic and reason",
	}, []string{"topic", "reason"})
)

// IncBusPublished records a delivered bus message for the given topic.
func IncBusPublished(topic string) {
	BusPublishedTotal.WithLabelValues(nonEmpty(topic)).Inc()
}

// IncBusDropReason records an abandoned publish with a concrete reason.
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(nonEmpty(topic), nonEmpty(reason)).Inc()
}

func nonEmpty(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
