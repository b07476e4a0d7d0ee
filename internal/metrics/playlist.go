// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlaylistRequests counts engine invocations by source, detection
	// strategy and terminal outcome.
	PlaylistRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_playlist_requests_total",
		Help: "Playlist rewrite invocations by source, strategy and outcome",
	}, []string{"source", "strategy", "outcome"})

	// PlaylistProcessDuration tracks end-to-end engine latency, redirect
	// hops included.
	PlaylistProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsclean_playlist_process_duration_seconds",
		Help:    "Time from request to rendered playlist",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"outcome"})

	playlistFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_playlist_fetches_total",
		Help: "Upstream playlist fetches by result",
	}, []string{"result"}) // result=ok|status|network|canceled|breaker_open

	playlistFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlsclean_playlist_fetch_duration_seconds",
		Help:    "Latency of a single upstream playlist fetch",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	playlistHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlsclean_playlist_redirect_hops",
		Help:    "Fetches needed to reach a media playlist",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	playlistRemovedLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_playlist_removed_lines_total",
		Help: "Playlist lines dropped as advertising, by strategy",
	}, []string{"strategy"})
)

// ObservePlaylist records one engine invocation.
func ObservePlaylist(source, strategy, outcome string, d time.Duration) {
	PlaylistRequests.WithLabelValues(source, strategy, outcome).Inc()
	PlaylistProcessDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveFetch records one upstream fetch and its latency.
func ObserveFetch(result string, d time.Duration) {
	playlistFetches.WithLabelValues(result).Inc()
	playlistFetchDuration.Observe(d.Seconds())
}

// ObserveHops records how many fetches a resolution needed.
func ObserveHops(n int) {
	playlistHops.Observe(float64(n))
}

// AddRemovedLines adds n dropped lines for strategy.
func AddRemovedLines(strategy string, n int) {
	if n <= 0 {
		return
	}
	playlistRemovedLines.WithLabelValues(strategy).Add(float64(n))
}
