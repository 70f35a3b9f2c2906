// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BridgeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_bridge_events_total",
		Help: "Native SDK events consumed by the bridge per channel",
	}, []string{"channel"})

	BridgeMalformedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmbridge_bridge_malformed_events_total",
		Help: "Native SDK events ignored because the payload had an unexpected type",
	}, []string{"channel"})

	lifecycleState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tmbridge_lifecycle_state",
		Help: "Current reconciled SDK lifecycle state (1 for the active state)",
	}, []string{"state"}) // state=known state name|unknown

	errorSlotSet = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tmbridge_sdk_error_active",
		Help: "Whether an SDK error is currently displayed (1) or not (0)",
	})
)

// IncBridgeEvent records one consumed event on channel.
func IncBridgeEvent(channel string) {
	BridgeEventsTotal.WithLabelValues(nonEmpty(channel)).Inc()
}

// IncBridgeMalformed records one ignored event on channel.
func IncBridgeMalformed(channel string) {
	BridgeMalformedTotal.WithLabelValues(nonEmpty(channel)).Inc()
}

// SetLifecycleState marks label as the only active state. The caller maps
// unrecognised remote values to a bounded label set.
func SetLifecycleState(labels []string, active string) {
	for _, l := range labels {
		v := 0.0
		if l == active {
			v = 1
		}
		lifecycleState.WithLabelValues(l).Set(v)
	}
}

// SetErrorActive toggles the SDK error gauge.
func SetErrorActive(active bool) {
	if active {
		errorSlotSet.Set(1)
		return
	}
	errorSlotSet.Set(0)
}
