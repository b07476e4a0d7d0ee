// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the gateway.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	SourceKey       = "playlist.source"
	PlaylistURLKey  = "playlist.url"
	HopKey          = "playlist.hop"
	HopsKey         = "playlist.hops"
	StrategyKey     = "playlist.strategy"
	OutcomeKey      = "playlist.outcome"
	RangesKey       = "playlist.ad_ranges"
	RemovedLinesKey = "playlist.removed_lines"
	BoundedStopKey  = "playlist.bounded_stop"
	MalformedKey    = "playlist.malformed"
	CacheHitKey     = "cache.hit"
	UpstreamHostKey = "upstream.host"
	BreakerStateKey = "upstream.breaker_state"
	ErrorKey        = "error"
	ErrorTypeKey    = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// HopAttributes describes one redirect-resolution hop. url must already be
// sanitized.
func HopAttributes(hop int, url string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(HopKey, hop),
		attribute.String(PlaylistURLKey, url),
	}
}

// OutcomeAttributes summarises a finished playlist invocation.
func OutcomeAttributes(source, strategy, outcome string, hops, ranges, removed int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 6)
	if source != "" {
		attrs = append(attrs, attribute.String(SourceKey, source))
	}
	return append(attrs,
		attribute.String(StrategyKey, strategy),
		attribute.String(OutcomeKey, outcome),
		attribute.Int(HopsKey, hops),
		attribute.Int(RangesKey, ranges),
		attribute.Int(RemovedLinesKey, removed),
	)
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
