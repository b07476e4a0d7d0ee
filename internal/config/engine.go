// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net/http"

	"github.com/ManuGH/hlsclean/internal/hls"
)

// HLS converts the file form into an engine configuration.
func (e EngineConfig) HLS() hls.Config {
	var sigs []hls.Signature
	if e.Signatures != nil {
		sigs = make([]hls.Signature, 0, len(e.Signatures))
		for _, s := range e.Signatures {
			sigs = append(sigs, hls.Signature(append([]float64(nil), s...)))
		}
	}
	return hls.Config{
		MaxHops:                e.MaxHops,
		NestedMode:             hls.NestedMode(e.NestedMode),
		NestedMarker:           e.NestedMarker,
		DiscontinuityThreshold: e.DiscontinuityThreshold,
		Signatures:             sigs,
		SignatureEpsilon:       e.SignatureEpsilon,
		AdKeywords:             e.AdKeywords,
		MinRetention:           e.MinRetention,
		MajorityBySite:         e.MajorityBySite,
		RewriteKeyURIs:         e.RewriteKeyURIs,
		Validate:               e.Validate,
	}
}

// EngineFor overlays the source's resolver and keyword overrides on base.
func (s SourceConfig) EngineFor(base EngineConfig) EngineConfig {
	if s.NestedMode != "" {
		base.NestedMode = s.NestedMode
	}
	if s.NestedMarker != "" {
		base.NestedMarker = s.NestedMarker
	}
	if s.AdKeywords != nil {
		base.AdKeywords = s.AdKeywords
	}
	return base
}

// StrategyName returns the configured detection strategy.
func (s SourceConfig) StrategyName() (hls.StrategyName, error) {
	return hls.ParseStrategy(s.Strategy)
}

// RequestHeaders builds the upstream headers for the source. defaultUA is
// used when the source sets no User-Agent.
func (s SourceConfig) RequestHeaders(defaultUA string) http.Header {
	h := make(http.Header, len(s.Headers)+1)
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	if h.Get("User-Agent") == "" && defaultUA != "" {
		h.Set("User-Agent", defaultUA)
	}
	return h
}
