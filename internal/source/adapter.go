// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/hlsclean/internal/cache"
	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/core/urlutil"
	"github.com/ManuGH/hlsclean/internal/hls"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/metrics"
)

// ProxyPath is the route adapters build player links against.
const ProxyPath = "/proxy"

// Deps are the shared collaborators every adapter is built from.
type Deps struct {
	Fetcher hls.Fetcher
	// Caches hands out per-source caches. Nil disables caching.
	Caches *cache.Factory
	// ProxyBase is prepended to ProxyPath, e.g. "http://127.0.0.1:8088".
	ProxyBase        string
	DefaultUserAgent string
}

// Adapter is the configuration-driven Source. Every stock catalogue is an
// Adapter; they differ only in their SourceConfig.
type Adapter struct {
	Base
	cfg      config.SourceConfig
	strategy hls.StrategyName
	engine   *hls.Engine
	fetcher  hls.Fetcher
	headers  http.Header
	proxy    string

	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group

	logger zerolog.Logger
}

var _ Source = (*Adapter)(nil)

// NewAdapter builds an adapter for src. engineCfg is the global engine
// section; the source's overrides are applied on top.
func NewAdapter(src config.SourceConfig, engineCfg config.EngineConfig, deps Deps) (*Adapter, error) {
	strategy, err := src.StrategyName()
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("source %s: fetcher is required", src.Name)
	}

	a := &Adapter{
		Base:     Base{SourceName: src.Name},
		cfg:      src,
		strategy: strategy,
		engine:   hls.New(deps.Fetcher, src.EngineFor(engineCfg).HLS()),
		fetcher:  deps.Fetcher,
		headers:  src.RequestHeaders(deps.DefaultUserAgent),
		proxy:    strings.TrimRight(deps.ProxyBase, "/") + ProxyPath,
		cache:    cache.NewNoOpCache(),
		logger:   xglog.WithComponent("source").With().Str(xglog.FieldSource, src.Name).Logger(),
	}
	if src.CacheTTL > 0 && deps.Caches != nil {
		a.cache = deps.Caches.New(src.Name)
		a.ttl = src.CacheTTL
	}
	return a, nil
}

// Info describes the adapter for listings.
func (a *Adapter) Info() Info {
	return Info{
		Name:         a.cfg.Name,
		DisplayName:  a.cfg.DisplayName,
		Strategy:     string(a.strategy),
		NestedMode:   string(a.engine.Config().NestedMode),
		FilterKeys:   a.cfg.PlayFilterKeywords,
		CacheEnabled: a.ttl > 0,
	}
}

// Init logs the effective settings. Adapters need no warm-up.
func (a *Adapter) Init(context.Context) error {
	ec := a.engine.Config()
	a.logger.Info().
		Str(xglog.FieldEvent, "source.init").
		Str(xglog.FieldStrategy, string(a.strategy)).
		Str("nested_mode", string(ec.NestedMode)).
		Int("max_hops", ec.MaxHops).
		Dur("cache_ttl", a.ttl).
		Msg("source initialized")
	return nil
}

// PlayerContent wraps id, a playlist URL, in a proxy link so the player
// fetches it through LocalProxy.
func (a *Adapter) PlayerContent(id string) PlayerContent {
	q := url.Values{}
	q.Set("do", "py")
	q.Set("site", a.cfg.Name)
	q.Set("url", EncodeURL(id))

	header := make(map[string]string, len(a.headers))
	for k := range a.headers {
		header[k] = a.headers.Get(k)
	}
	return PlayerContent{URL: a.proxy + "?" + q.Encode(), Header: header}
}

// FilterPlaySources applies the source's play-source keyword filter.
func (a *Adapter) FilterPlaySources(from, urls string) (string, string) {
	return FilterPlaySources(from, urls, a.cfg.PlayFilterKeywords)
}

// LocalProxy serves a proxy link built by PlayerContent. Playlists go
// through the engine; anything else is relayed unmodified.
func (a *Adapter) LocalProxy(ctx context.Context, params url.Values) hls.Response {
	target, err := DecodeURL(params.Get("url"))
	if err != nil || !urlutil.IsAbsolute(target) {
		return hls.Response{
			Status:      http.StatusBadRequest,
			ContentType: hls.ContentTypeText,
			Body:        "invalid url parameter\n",
		}
	}

	ctx = xglog.ContextWithSource(ctx, a.cfg.Name)
	if !isPlaylistURL(target) {
		return a.relay(ctx, target)
	}
	return a.playlist(ctx, target)
}

// Process runs target through the engine, bypassing the cache.
func (a *Adapter) Process(ctx context.Context, target string) hls.Result {
	return a.engine.Process(ctx, hls.Request{
		URL:      target,
		Headers:  a.headers.Clone(),
		Strategy: a.strategy,
		Source:   a.cfg.Name,
	})
}

func (a *Adapter) playlist(ctx context.Context, target string) hls.Response {
	if a.ttl > 0 {
		if body, ok := a.cache.Get(ctx, target); ok {
			metrics.RecordCacheLookup(a.cfg.Name, true)
			return hls.PlaylistResponse(string(body))
		}
		metrics.RecordCacheLookup(a.cfg.Name, false)
	}

	// Concurrent players asking for the same playlist share one upstream
	// resolution. The shared work outlives a single caller's cancellation.
	ch := a.group.DoChan(target, func() (interface{}, error) {
		res := a.Process(context.WithoutCancel(ctx), target)
		if a.ttl > 0 && cacheable(res.Outcome) {
			a.cache.Set(context.WithoutCancel(ctx), target, []byte(res.Response.Body), a.ttl)
		}
		return res.Response, nil
	})

	select {
	case <-ctx.Done():
		return hls.FailureResponse(ctx.Err())
	case r := <-ch:
		return r.Val.(hls.Response)
	}
}

// relay passes a non-playlist URL through unmodified. The body is streamed
// when the fetcher supports it, so media is never held in memory.
func (a *Adapter) relay(ctx context.Context, target string) hls.Response {
	resp := hls.Response{Status: http.StatusOK, ContentType: contentTypeFor(target)}
	var err error
	if s, ok := a.fetcher.(hls.Streamer); ok {
		resp.Stream, err = s.Stream(ctx, target, a.headers.Clone())
	} else {
		resp.Body, err = a.fetcher.Fetch(ctx, target, a.headers.Clone())
	}
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "source.relay_failed").
			Str(xglog.FieldURL, urlutil.SanitizeURL(target)).
			Msg("relay fetch failed")
		return hls.FailureResponse(err)
	}
	return resp
}

// Destroy drops cached playlists and releases the cache.
func (a *Adapter) Destroy() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.ttl > 0 {
		a.cache.Clear(ctx)
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("closing source cache")
	}
	a.logger.Debug().Str(xglog.FieldEvent, "source.destroyed").Msg("source destroyed")
}

func cacheable(o hls.Outcome) bool {
	return o == hls.OutcomeRendered || o == hls.OutcomePassthrough
}

func isPlaylistURL(u string) bool {
	return strings.Contains(strings.ToLower(u), "m3u8")
}

func contentTypeFor(u string) string {
	lower := strings.ToLower(u)
	switch {
	case strings.Contains(lower, "m3u8"):
		return hls.ContentTypePlaylist
	case strings.Contains(lower, ".mp4"), strings.Contains(lower, ".avi"), strings.Contains(lower, ".mkv"):
		return "video/mp4"
	default:
		return hls.ContentTypePlaylist
	}
}
