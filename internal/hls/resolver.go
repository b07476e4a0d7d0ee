// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/hlsclean/internal/core/urlutil"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/metrics"
	"github.com/ManuGH/hlsclean/internal/telemetry"
)

// NestedMode selects how a playlist that merely points at another playlist
// is recognised.
type NestedMode string

const (
	// NestedAny follows the first non-tag line referencing a .m3u/.m3u8
	// resource.
	NestedAny NestedMode = "any"
	// NestedThirdLine follows the third line when it contains the marker.
	NestedThirdLine NestedMode = "third-line"
)

const (
	// DefaultMaxHops bounds redirect resolution.
	DefaultMaxHops = 5
	// DefaultNestedMarker is the third-line marker of NestedThirdLine.
	DefaultNestedMarker = "mixed.m3u8"
)

// Valid reports whether m names a known mode.
func (m NestedMode) Valid() bool {
	return m == NestedAny || m == NestedThirdLine
}

// Resolution is the outcome of following a redirect chain.
type Resolution struct {
	// URL is the location Body was fetched from; relative references in
	// Body resolve against it.
	URL   string
	Body  string
	Hops  int
	Trail []string
	// Bounded is set when the hop limit stopped a chain that still pointed
	// elsewhere. Body is then the last fetched content, unmodified.
	Bounded bool
}

// Resolver follows nested playlist references.
type Resolver struct {
	fetcher Fetcher
	maxHops int
	mode    NestedMode
	marker  string
	tracer  trace.Tracer
}

// NewResolver builds a resolver. Zero values select the defaults.
func NewResolver(fetcher Fetcher, maxHops int, mode NestedMode, marker string) *Resolver {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if !mode.Valid() {
		mode = NestedAny
	}
	if marker == "" {
		marker = DefaultNestedMarker
	}
	return &Resolver{
		fetcher: fetcher,
		maxHops: maxHops,
		mode:    mode,
		marker:  marker,
		tracer:  telemetry.Tracer(tracerName),
	}
}

// Resolve fetches url and keeps following nested references until a body
// no longer points elsewhere or the hop limit is reached. A failure at any
// hop is returned as a *FetchError; the partial Resolution still records
// the hops taken.
func (r *Resolver) Resolve(ctx context.Context, url string, headers http.Header) (Resolution, error) {
	logger := xglog.WithComponentFromContext(ctx, "hls.resolver")
	res := Resolution{}
	current := url

	for hop := 1; ; hop++ {
		body, err := r.fetchHop(ctx, current, hop, headers)
		if err != nil {
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "playlist.hop_failed").
				Int(xglog.FieldHop, hop).
				Str(xglog.FieldURL, urlutil.SanitizeURL(current)).
				Msg("playlist fetch failed")
			return res, err
		}

		res.URL = current
		res.Body = body
		res.Hops = hop
		res.Trail = append(res.Trail, current)

		ref, ok := r.NestedReference(body)
		if !ok {
			return res, nil
		}
		next := urlutil.Resolve(current, ref)
		if hop >= r.maxHops {
			res.Bounded = true
			logger.Warn().
				Str(xglog.FieldEvent, "playlist.redirect_bound").
				Int(xglog.FieldHop, hop).
				Str(xglog.FieldURL, urlutil.SanitizeURL(next)).
				Msg("redirect hop limit reached, returning last body")
			return res, nil
		}

		logger.Debug().
			Str(xglog.FieldEvent, "playlist.redirect").
			Int(xglog.FieldHop, hop).
			Str(xglog.FieldURL, urlutil.SanitizeURL(next)).
			Msg("following nested playlist")
		current = next
	}
}

func (r *Resolver) fetchHop(ctx context.Context, url string, hop int, headers http.Header) (string, error) {
	ctx, span := r.tracer.Start(ctx, "playlist.fetch",
		trace.WithAttributes(telemetry.HopAttributes(hop, urlutil.SanitizeURL(url))...))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", &FetchError{URL: url, Hop: hop, Err: err}
	}

	start := time.Now()
	body, err := r.fetcher.Fetch(ctx, url, headers)
	if err != nil {
		metrics.ObserveFetch("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")

		var fe *FetchError
		if errors.As(err, &fe) {
			if fe.URL == "" {
				fe.URL = url
			}
			fe.Hop = hop
			return "", fe
		}
		return "", &FetchError{URL: url, Hop: hop, Err: fmt.Errorf("fetch: %w", err)}
	}
	metrics.ObserveFetch("ok", time.Since(start))
	return body, nil
}

// NestedReference returns the nested playlist reference carried by body,
// if any. Only bodies whose first non-empty line is #EXTM3U qualify.
func (r *Resolver) NestedReference(body string) (string, bool) {
	lines := strings.Split(strings.TrimPrefix(body, utf8BOM), "\n")

	first := ""
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			first = s
			break
		}
	}
	if !strings.HasPrefix(first, tagHeader) {
		return "", false
	}

	if r.mode == NestedThirdLine {
		if len(lines) < 3 {
			return "", false
		}
		third := strings.TrimSpace(lines[2])
		if third == "" || strings.HasPrefix(third, "#") || !strings.Contains(third, r.marker) {
			return "", false
		}
		return third, true
	}

	for _, l := range lines {
		s := strings.TrimSpace(l)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if isPlaylistRef(s) {
			return s, true
		}
	}
	return "", false
}

func isPlaylistRef(ref string) bool {
	path := ref
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(strings.ToLower(path), ".m3u")
}
