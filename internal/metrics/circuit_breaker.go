// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// breakerStateValues encodes breaker states for a single gauge series per
// host so dashboards can plot transitions directly.
var breakerStateValues = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

var (
	upstreamBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hlsclean_upstream_breaker_state",
		Help: "Upstream host breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"host"})

	upstreamBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_upstream_breaker_trips_total",
		Help: "Transitions of an upstream host breaker into the open state",
	}, []string{"host", "reason"}) // reason=threshold_exceeded|half_open_failure
)

// SetCircuitBreakerState records the current state of the breaker for host.
// Unknown states are ignored.
func SetCircuitBreakerState(host, state string) {
	if v, ok := breakerStateValues[state]; ok {
		upstreamBreakerState.WithLabelValues(host).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a breaker opening for host.
func RecordCircuitBreakerTrip(host, reason string) {
	upstreamBreakerTrips.WithLabelValues(host, reason).Inc()
}
