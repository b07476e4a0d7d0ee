// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playlistCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_playlist_cache_lookups_total",
		Help: "Adapter playlist cache lookups by source and result",
	}, []string{"source", "result"}) // result=hit|miss

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsclean_ratelimit_exceeded_total",
		Help: "Requests rejected or delayed by rate limiting",
	}, []string{"limit_type"}) // limit_type=ingress|upstream
)

// RecordCacheLookup records a playlist cache hit or miss for a source.
func RecordCacheLookup(source string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	playlistCacheLookups.WithLabelValues(source, result).Inc()
}

// IncRateLimited records a rate limiter rejection.
func IncRateLimited(limitType string) {
	rateLimited.WithLabelValues(limitType).Inc()
}
