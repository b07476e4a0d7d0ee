// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package httpx builds the outbound HTTP clients used to talk to upstream
// playlist hosts.
package httpx

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxDialTimeout       = 5 * time.Second
	maxHeaderWait        = 8 * time.Second
	idleConnTimeout      = 30 * time.Second
	maxIdleConns         = 64
	maxIdleConnsPerHost  = 8

	// MaxHTTPRedirects caps 3xx hops inside a single fetch. Playlist level
	// redirects are counted separately by the engine.
	MaxHTTPRedirects = 5
)

// ErrTooManyRedirects is returned (wrapped in *url.Error) when an upstream
// chains more than MaxHTTPRedirects 3xx responses.
var ErrTooManyRedirects = errors.New("too many http redirects")

// NewClient returns an HTTP client for upstream playlist fetches. timeout
// bounds one request end to end and also caps the dial and header waits.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	dial := min(timeout, maxDialTimeout)

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dial, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: min(timeout, maxHeaderWait),
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: limitRedirects,
	}
}

// limitRedirects stops chains longer than MaxHTTPRedirects.
func limitRedirects(req *http.Request, via []*http.Request) error {
	if len(via) > MaxHTTPRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, MaxHTTPRedirects)
	}
	return nil
}

// Instrument wraps the client's transport so every upstream request emits an
// OpenTelemetry client span. The client is modified in place and returned.
func Instrument(c *http.Client) *http.Client {
	if c == nil {
		return nil
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "upstream " + r.Method
		}),
	)
	return c
}
