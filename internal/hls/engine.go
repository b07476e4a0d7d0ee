// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hls implements the playlist ad-filtering engine: redirect
// resolution, line classification, ad-range detection, URI
// canonicalization and rendering.
package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/hlsclean/internal/core/urlutil"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/metrics"
	"github.com/ManuGH/hlsclean/internal/telemetry"
)

const tracerName = "github.com/ManuGH/hlsclean/internal/hls"

const (
	ContentTypePlaylist = "application/vnd.apple.mpegurl"
	ContentTypeText     = "text/plain; charset=utf-8"
)

// DefaultDiscontinuityThreshold is the marker count at which auto switches
// from positional to signature detection.
const DefaultDiscontinuityThreshold = 10

// Outcome is the terminal state of one invocation.
type Outcome string

const (
	OutcomeRendered    Outcome = "rendered"
	OutcomePassthrough Outcome = "passthrough"
	OutcomeEmpty       Outcome = "empty"
	OutcomeBoundedStop Outcome = "bounded_stop"
)

// Response is what a proxy hands back to the media player.
type Response struct {
	Status      int
	ContentType string
	Body        string
	// Stream, when set, replaces Body. The writer copies and closes it.
	Stream io.ReadCloser
}

// Config is the immutable engine configuration.
type Config struct {
	MaxHops      int
	NestedMode   NestedMode
	NestedMarker string

	DiscontinuityThreshold int
	Signatures             []Signature
	SignatureEpsilon       float64

	AdKeywords   []string
	MinRetention float64
	// MajorityBySite makes the majority strategy group segment hosts by
	// registrable domain.
	MajorityBySite bool

	RewriteKeyURIs bool
	// Validate decodes every rendered playlist with an independent parser
	// and logs when it would be rejected.
	Validate bool
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxHops:                DefaultMaxHops,
		NestedMode:             NestedAny,
		NestedMarker:           DefaultNestedMarker,
		DiscontinuityThreshold: DefaultDiscontinuityThreshold,
		Signatures:             DefaultSignatures(),
		AdKeywords:             DefaultAdKeywords(),
		MinRetention:           DefaultMinRetention,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxHops <= 0 {
		c.MaxHops = d.MaxHops
	}
	if !c.NestedMode.Valid() {
		c.NestedMode = d.NestedMode
	}
	if c.NestedMarker == "" {
		c.NestedMarker = d.NestedMarker
	}
	if c.DiscontinuityThreshold <= 0 {
		c.DiscontinuityThreshold = d.DiscontinuityThreshold
	}
	if c.Signatures == nil {
		c.Signatures = d.Signatures
	}
	if c.AdKeywords == nil {
		c.AdKeywords = d.AdKeywords
	}
	if c.MinRetention <= 0 {
		c.MinRetention = d.MinRetention
	}
	return c
}

// Request is one playlist to clean.
type Request struct {
	URL      string
	Headers  http.Header
	Strategy StrategyName
	// Source labels logs and metrics.
	Source string
}

// Result describes what Process did. Response is always populated.
type Result struct {
	Outcome  Outcome
	Strategy StrategyName
	Ranges   []AdRange
	Removed  int
	Hops     int
	FinalURL string
	// Malformed is set when the resolved body lacked #EXTM3U.
	Malformed bool
	Reason    string
	// Err carries the fetch failure for OutcomeEmpty and ErrRedirectBound
	// for OutcomeBoundedStop.
	Err      error
	Response Response
}

// Engine runs the full pipeline. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	cfg       Config
	resolver  *Resolver
	detectors map[StrategyName]Detector
	tracer    trace.Tracer
}

// New builds an engine around fetcher.
func New(fetcher Fetcher, cfg Config) *Engine {
	cfg = cfg.withDefaults()

	positional := PositionalDetector{}
	signature := SignatureDetector{Signatures: cfg.Signatures, Epsilon: cfg.SignatureEpsilon}
	return &Engine{
		cfg:      cfg,
		resolver: NewResolver(fetcher, cfg.MaxHops, cfg.NestedMode, cfg.NestedMarker),
		detectors: map[StrategyName]Detector{
			StrategyAuto: autoDetector{
				threshold:  cfg.DiscontinuityThreshold,
				positional: positional,
				signature:  signature,
			},
			StrategyPositional: positional,
			StrategySignature:  signature,
			StrategyMajority:   MajorityDetector{Keywords: cfg.AdKeywords, MinRetention: cfg.MinRetention, BySite: cfg.MajorityBySite},
			StrategyNone:       noneDetector{},
		},
		tracer: telemetry.Tracer(tracerName),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Detector returns the detector registered for name, resolving auto against
// doc when doc is non-nil.
func (e *Engine) Detector(name StrategyName, doc *Document) Detector {
	d, ok := e.detectors[name]
	if !ok {
		d = e.detectors[StrategyAuto]
	}
	if a, ok := d.(autoDetector); ok && doc != nil {
		return a.pick(doc)
	}
	return d
}

// Process resolves, filters and renders one playlist. It never fails: every
// path ends in a Result whose Response can be written to the client.
func (e *Engine) Process(ctx context.Context, req Request) Result {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "playlist.process")
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "hls")
	result := e.process(ctx, req)

	if result.Outcome == OutcomeEmpty {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "playlist unavailable")
	}
	span.SetAttributes(telemetry.OutcomeAttributes(req.Source, string(result.Strategy),
		string(result.Outcome), result.Hops, len(result.Ranges), result.Removed)...)

	metrics.ObservePlaylist(req.Source, string(result.Strategy), string(result.Outcome), time.Since(start))
	metrics.ObserveHops(result.Hops)
	if result.Removed > 0 {
		metrics.AddRemovedLines(string(result.Strategy), result.Removed)
	}

	ev := logger.Info()
	if result.Outcome == OutcomeEmpty || result.Outcome == OutcomeBoundedStop {
		ev = logger.Warn().Err(result.Err)
	}
	ev.Str(xglog.FieldEvent, "playlist.processed").
		Str(xglog.FieldURL, urlutil.SanitizeURL(req.URL)).
		Str(xglog.FieldStrategy, string(result.Strategy)).
		Str(xglog.FieldOutcome, string(result.Outcome)).
		Int(xglog.FieldHop, result.Hops).
		Interface(xglog.FieldRanges, result.Ranges).
		Int(xglog.FieldRemoved, result.Removed).
		Int64(xglog.FieldDuration, time.Since(start).Milliseconds()).
		Msg("playlist processed")

	return result
}

func (e *Engine) process(ctx context.Context, req Request) Result {
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyAuto
	}

	res, err := e.resolver.Resolve(ctx, req.URL, req.Headers)
	if err != nil {
		return Result{
			Outcome:  OutcomeEmpty,
			Strategy: strategy,
			Hops:     res.Hops,
			Err:      err,
			Reason:   "fetch failed",
			Response: FailureResponse(err),
		}
	}
	if res.Bounded {
		return Result{
			Outcome:  OutcomeBoundedStop,
			Strategy: strategy,
			Hops:     res.Hops,
			FinalURL: res.URL,
			Err:      ErrRedirectBound,
			Reason:   fmt.Sprintf("stopped after %d hops", res.Hops),
			Response: PlaylistResponse(res.Body),
		}
	}

	doc := Parse(res.Body, res.URL)
	logger := xglog.WithComponentFromContext(ctx, "hls")
	if doc.Malformed() {
		logger.Warn().
			Err(ErrMalformedPlaylist).
			Str(xglog.FieldEvent, "playlist.malformed").
			Str(xglog.FieldURL, urlutil.SanitizeURL(res.URL)).
			Msg("playlist has no #EXTM3U header, processing anyway")
	}

	detector := e.Detector(strategy, doc)
	det := detector.Detect(doc)

	result := Result{
		Strategy:  detector.Name(),
		Hops:      res.Hops,
		FinalURL:  res.URL,
		Malformed: doc.Malformed(),
		Reason:    det.Reason,
	}
	opts := RenderOptions{RewriteKeyURIs: e.cfg.RewriteKeyURIs}
	if det.Aborted || len(det.Ranges) == 0 {
		result.Outcome = OutcomePassthrough
		result.Response = PlaylistResponse(Render(doc, nil, opts))
	} else {
		result.Outcome = OutcomeRendered
		result.Ranges = det.Ranges
		result.Removed = removedLines(len(doc.Lines), det.Ranges)
		result.Response = PlaylistResponse(Render(doc, det.Ranges, opts))
	}

	if e.cfg.Validate {
		if _, err := Inspect(result.Response.Body); err != nil {
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "playlist.validation_failed").
				Str(xglog.FieldURL, urlutil.SanitizeURL(res.URL)).
				Msg("rendered playlist failed structural validation")
		}
	}
	return result
}

// PlaylistResponse wraps a playlist body in a 200 response.
func PlaylistResponse(body string) Response {
	return Response{Status: http.StatusOK, ContentType: ContentTypePlaylist, Body: body}
}

// FailureResponse is the 502 returned when a playlist cannot be fetched.
func FailureResponse(err error) Response {
	return Response{
		Status:      http.StatusBadGateway,
		ContentType: ContentTypeText,
		Body:        diagnostic(err),
	}
}

func diagnostic(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.StatusCode != 0:
			return fmt.Sprintf("upstream playlist unavailable: hop %d returned status %d (%s)\n",
				fe.Hop, fe.StatusCode, urlutil.SanitizeURL(fe.URL))
		case errors.Is(fe.Err, context.DeadlineExceeded):
			return fmt.Sprintf("upstream playlist unavailable: hop %d timed out (%s)\n",
				fe.Hop, urlutil.SanitizeURL(fe.URL))
		default:
			return fmt.Sprintf("upstream playlist unavailable: hop %d failed (%s)\n",
				fe.Hop, urlutil.SanitizeURL(fe.URL))
		}
	}
	return "upstream playlist unavailable\n"
}
