// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hlsclean/internal/cache"
	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/hls"
)

const adBody = `#EXTM3U
#EXT-X-TARGETDURATION:4
#EXTINF:4.0,
seg0.ts
#EXT-X-DISCONTINUITY
#EXTINF:4.0,
seg1.ts
#EXT-X-DISCONTINUITY
#EXTINF:3.0,
ad0.ts
#EXT-X-DISCONTINUITY
#EXTINF:4.0,
seg2.ts
#EXT-X-ENDLIST
`

type upstream struct {
	*httptest.Server
	hits      atomic.Int32
	userAgent atomic.Value
}

func newUpstream(t *testing.T, delay time.Duration) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.userAgent.Store(r.UserAgent())
		if delay > 0 {
			time.Sleep(delay)
		}
		switch r.URL.Path {
		case "/v/index.m3u8":
			_, _ = w.Write([]byte(adBody))
		case "/movie.mp4":
			_, _ = w.Write([]byte("MP4DATA"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.Close)
	return u
}

func newTestAdapter(t *testing.T, u *upstream, src config.SourceConfig, caches *cache.Factory) *Adapter {
	t.Helper()
	a, err := NewAdapter(src, config.Defaults().Engine, Deps{
		Fetcher:          hls.NewHTTPFetcher(u.Client()),
		Caches:           caches,
		ProxyBase:        "http://proxy.test/",
		DefaultUserAgent: "default-ua",
	})
	require.NoError(t, err)
	return a
}

func proxyParams(target string) url.Values {
	return url.Values{"do": {"py"}, "url": {EncodeURL(target)}}
}

func TestAdapter_PlayerContent(t *testing.T) {
	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{
		Name:     "feifan",
		Strategy: "auto",
		Headers:  map[string]string{"Referer": "https://site.test/"},
	}, nil)

	pc := a.PlayerContent("https://cdn.test/v/index.m3u8")
	assert.Equal(t, 0, pc.Parse)
	assert.Equal(t, 0, pc.JX)
	assert.Equal(t, "default-ua", pc.Header["User-Agent"])
	assert.Equal(t, "https://site.test/", pc.Header["Referer"])

	link, err := url.Parse(pc.URL)
	require.NoError(t, err)
	assert.Equal(t, "proxy.test", link.Host)
	assert.Equal(t, ProxyPath, link.Path)
	assert.Equal(t, "py", link.Query().Get("do"))
	assert.Equal(t, "feifan", link.Query().Get("site"))

	decoded, err := DecodeURL(link.Query().Get("url"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/v/index.m3u8", decoded)
}

func TestAdapter_LocalProxyFiltersPlaylist(t *testing.T) {
	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{Name: "t", Strategy: "positional"}, nil)

	resp := a.LocalProxy(context.Background(), proxyParams(u.URL+"/v/index.m3u8"))
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, hls.ContentTypePlaylist, resp.ContentType)
	assert.NotContains(t, resp.Body, "ad0.ts")
	assert.Contains(t, resp.Body, u.URL+"/v/seg1.ts")
	assert.Contains(t, resp.Body, u.URL+"/v/seg2.ts")
	assert.Equal(t, "default-ua", u.userAgent.Load())
}

func TestAdapter_LocalProxyRelaysNonPlaylist(t *testing.T) {
	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{Name: "t"}, nil)

	resp := a.LocalProxy(context.Background(), proxyParams(u.URL+"/movie.mp4"))
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "video/mp4", resp.ContentType)
	require.NotNil(t, resp.Stream, "media is streamed, not buffered")
	defer resp.Stream.Close()
	body, err := io.ReadAll(resp.Stream)
	require.NoError(t, err)
	assert.Equal(t, "MP4DATA", string(body))
}

func TestAdapter_RelayIgnoresPlaylistBodyCap(t *testing.T) {
	u := newUpstream(t, 0)
	a, err := NewAdapter(config.SourceConfig{Name: "t"}, config.Defaults().Engine, Deps{
		Fetcher: hls.NewHTTPFetcher(u.Client(), hls.WithMaxBodyBytes(4)),
	})
	require.NoError(t, err)

	resp := a.LocalProxy(context.Background(), proxyParams(u.URL+"/movie.mp4"))
	require.Equal(t, http.StatusOK, resp.Status)
	require.NotNil(t, resp.Stream)
	defer resp.Stream.Close()
	body, err := io.ReadAll(resp.Stream)
	require.NoError(t, err)
	assert.Equal(t, "MP4DATA", string(body))

	resp = a.LocalProxy(context.Background(), proxyParams(u.URL+"/missing.mp4"))
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Nil(t, resp.Stream)
}

func TestAdapter_RelayBuffersWithoutStreamer(t *testing.T) {
	f := hls.FetcherFunc(func(context.Context, string, http.Header) (string, error) { return "RAW", nil })
	a, err := NewAdapter(config.SourceConfig{Name: "t"}, config.Defaults().Engine, Deps{Fetcher: f})
	require.NoError(t, err)

	resp := a.LocalProxy(context.Background(), proxyParams("https://cdn.test/clip.mkv"))
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Nil(t, resp.Stream)
	assert.Equal(t, "RAW", resp.Body)
}

func TestAdapter_LocalProxyErrors(t *testing.T) {
	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{Name: "t"}, nil)

	resp := a.LocalProxy(context.Background(), url.Values{"url": {"!!!"}})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = a.LocalProxy(context.Background(), proxyParams("/relative/index.m3u8"))
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = a.LocalProxy(context.Background(), proxyParams(u.URL+"/missing.m3u8"))
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, hls.ContentTypeText, resp.ContentType)
	assert.Contains(t, resp.Body, "status 404")
}

func TestAdapter_CacheAndCoalescing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	caches, err := cache.NewFactory(context.Background(), cache.FactoryConfig{Backend: cache.BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = caches.Close() }()

	u := newUpstream(t, 50*time.Millisecond)
	defer u.Close()
	a := newTestAdapter(t, u, config.SourceConfig{Name: "t", Strategy: "positional", CacheTTL: time.Minute}, caches)
	assert.True(t, a.Info().CacheEnabled)

	target := u.URL + "/v/index.m3u8"
	var wg sync.WaitGroup
	bodies := make([]string, 8)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bodies[i] = a.LocalProxy(context.Background(), proxyParams(target)).Body
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), u.hits.Load(), "concurrent requests share one fetch")
	for _, b := range bodies {
		assert.Equal(t, bodies[0], b)
	}

	// served from cache
	_ = a.LocalProxy(context.Background(), proxyParams(target))
	assert.Equal(t, int32(1), u.hits.Load())

	// Destroy drops the cache
	a.Destroy()
	fresh := newTestAdapter(t, u, config.SourceConfig{Name: "t", Strategy: "positional", CacheTTL: time.Minute}, caches)
	defer fresh.Destroy()
	_ = fresh.LocalProxy(context.Background(), proxyParams(target))
	assert.Equal(t, int32(2), u.hits.Load())
}

func TestAdapter_FailuresAreNotCached(t *testing.T) {
	caches, err := cache.NewFactory(context.Background(), cache.FactoryConfig{Backend: cache.BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = caches.Close() }()

	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{Name: "t", CacheTTL: time.Minute}, caches)
	defer a.Destroy()

	target := u.URL + "/gone.m3u8"
	for i := 0; i < 2; i++ {
		resp := a.LocalProxy(context.Background(), proxyParams(target))
		assert.Equal(t, http.StatusBadGateway, resp.Status)
	}
	assert.Equal(t, int32(2), u.hits.Load())
}

func TestAdapter_FilterPlaySources(t *testing.T) {
	u := newUpstream(t, 0)
	a := newTestAdapter(t, u, config.SourceConfig{Name: "ruyi", PlayFilterKeywords: []string{"ruyi"}}, nil)

	from, urls := a.FilterPlaySources("ruyi$$$rym3u8", "a$$$b")
	assert.Equal(t, "rym3u8", from)
	assert.Equal(t, "b", urls)
}

func TestNewAdapter_RejectsUnknownStrategy(t *testing.T) {
	_, err := NewAdapter(config.SourceConfig{Name: "x", Strategy: "psychic"}, config.Defaults().Engine, Deps{
		Fetcher: hls.FetcherFunc(func(context.Context, string, http.Header) (string, error) { return "", nil }),
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "psychic"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, hls.ContentTypePlaylist, contentTypeFor("https://a/b.m3u8"))
	assert.Equal(t, "video/mp4", contentTypeFor("https://a/b.MKV"))
	assert.Equal(t, hls.ContentTypePlaylist, contentTypeFor("https://a/b"))
}
