// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NativeCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_native_commands_total",
		Help: "Commands issued to the native SDK module by outcome",
	}, []string{"command", "outcome"}) // outcome=success|failure|skipped

	nativeConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tmbridge_native_connected",
		Help: "Whether the native helper connection is up (1) or down (0)",
	})

	nativeDialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_native_dials_total",
		Help: "Dial attempts to the native helper by outcome",
	}, []string{"outcome"})
)

// IncNativeCommand records one command outcome.
func IncNativeCommand(command, outcome string) {
	NativeCommandsTotal.WithLabelValues(nonEmpty(command), nonEmpty(outcome)).Inc()
}

// SetNativeConnected toggles the connection gauge.
func SetNativeConnected(up bool) {
	if up {
		nativeConnected.Set(1)
		return
	}
	nativeConnected.Set(0)
}

// IncNativeDial records one dial attempt.
func IncNativeDial(outcome string) {
	nativeDialsTotal.WithLabelValues(nonEmpty(outcome)).Inc()
}
