// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package upstream decorates playlist fetchers with per-host pacing and
// circuit breaking.
package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuGH/hlsclean/internal/hls"
	"github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/metrics"
	"github.com/ManuGH/hlsclean/internal/ratelimit"
	"github.com/ManuGH/hlsclean/internal/resilience"
)

// Guard is an hls.Fetcher and hls.Streamer that waits for a per-host rate
// limit token and fails fast while a host's breaker is open. It never
// retries.
type Guard struct {
	next     hls.Fetcher
	limiter  *ratelimit.Limiter
	breakers *resilience.HostBreakers
}

// NewGuard wraps next. A nil limiter or breaker set disables that layer.
func NewGuard(next hls.Fetcher, limiter *ratelimit.Limiter, breakers *resilience.HostBreakers) *Guard {
	return &Guard{next: next, limiter: limiter, breakers: breakers}
}

// Fetch implements hls.Fetcher.
func (g *Guard) Fetch(ctx context.Context, rawURL string, headers http.Header) (string, error) {
	var body string
	err := g.do(ctx, rawURL, func() error {
		var ferr error
		body, ferr = g.next.Fetch(ctx, rawURL, headers)
		return ferr
	})
	return body, err
}

// Stream implements hls.Streamer. Only opening the stream is paced and
// counted against the host breaker. When the wrapped fetcher cannot
// stream, the body is fetched whole.
func (g *Guard) Stream(ctx context.Context, rawURL string, headers http.Header) (io.ReadCloser, error) {
	s, ok := g.next.(hls.Streamer)
	if !ok {
		body, err := g.Fetch(ctx, rawURL, headers)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(strings.NewReader(body)), nil
	}

	var rc io.ReadCloser
	err := g.do(ctx, rawURL, func() error {
		var serr error
		rc, serr = s.Stream(ctx, rawURL, headers)
		return serr
	})
	return rc, err
}

func (g *Guard) do(ctx context.Context, rawURL string, fn func() error) error {
	host := hostOf(rawURL)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, host); err != nil {
			metrics.IncRateLimited("upstream")
			return &hls.FetchError{URL: rawURL, Err: err}
		}
	}
	if g.breakers == nil {
		return fn()
	}

	err := g.breakers.For(host).Execute(fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		logger := log.WithComponentFromContext(ctx, "upstream")
		logger.Debug().
			Str(log.FieldEvent, "upstream.breaker_open").
			Str("host", host).
			Msg("skipping fetch, host breaker open")
		return &hls.FetchError{URL: rawURL, Err: err}
	}
	return err
}

// IsHostFailure reports whether err says something about the health of
// the upstream host. Client errors and caller cancellation do not.
func IsHostFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var fe *hls.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return fe.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
