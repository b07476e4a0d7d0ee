// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/hlsclean/internal/platform/httpx"
)

const (
	// DefaultFetchTimeout bounds a single hop.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a playlist body is read.
	DefaultMaxBodyBytes int64 = 8 << 20
)

// Fetcher performs a single GET and returns the body text. Implementations
// must treat any status other than 200 as a failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, headers http.Header) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	return f(ctx, url, headers)
}

// Streamer opens an upstream body without buffering it, for media that is
// relayed rather than parsed. The caller closes the reader.
type Streamer interface {
	Stream(ctx context.Context, url string, headers http.Header) (io.ReadCloser, error)
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes overrides the body size cap.
func WithMaxBodyBytes(n int64) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// NewHTTPFetcher builds a fetcher around client. A nil client gets the
// shared hardened, instrumented client.
func NewHTTPFetcher(client *http.Client, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:       client,
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httpx.Instrument(httpx.NewClient(f.timeout))
	}
	return f
}

// Fetch issues one bounded GET.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", &FetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", f.maxBodyBytes)}
	}
	return string(body), nil
}

// Stream implements Streamer. The fetch timeout bounds the wait for response
// headers only; the body has no size cap and lives until it is closed or ctx
// ends.
func (f *HTTPFetcher) Stream(ctx context.Context, url string, headers http.Header) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(f.timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		timer.Stop()
		cancel()
		return nil, &FetchError{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// Client.Timeout covers the body read; streams are bounded by ctx.
	client := *f.client
	client.Timeout = 0
	resp, err := client.Do(req)
	if !timer.Stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, &FetchError{URL: url, Err: context.DeadlineExceeded}
	}
	if err != nil {
		cancel()
		return nil, &FetchError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	return &streamBody{ReadCloser: resp.Body, cancel: cancel}, nil
}

// streamBody releases the request context when the body is closed.
type streamBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *streamBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
