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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProcessChainedRedirectRendersFinalPlaylist(t *testing.T) {
	b := newPlaylist()
	b.run("main", 10)
	b.disc()
	b.run("ad", 4)
	b.disc()
	b.run("main", 10)

	up := newUpstream(t, map[string]string{
		"/a.m3u8":         "#EXTM3U\nb.m3u8",
		"/b.m3u8":         "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nvod/index.m3u8",
		"/vod/index.m3u8": strings.Join(b.lines, "\n"),
	})

	e := New(up.fetcher(), DefaultConfig())
	res := e.Process(context.Background(), Request{URL: up.URL + "/a.m3u8", Source: "test"})

	require.Equal(t, OutcomeRendered, res.Outcome)
	assert.Equal(t, 3, up.fetches())
	assert.Equal(t, 3, res.Hops)
	assert.Equal(t, StrategyPositional, res.Strategy)
	assert.Equal(t, []AdRange{{4, 4}}, res.Ranges)
	assert.Equal(t, 1, res.Removed)
	assert.NoError(t, res.Err)

	want := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-TARGETDURATION:10",
		"#EXTINF:10,",
		up.URL + "/vod/main2.ts",
		"#EXTINF:4,",
		up.URL + "/vod/ad5.ts",
		"#EXT-X-DISCONTINUITY",
		"#EXTINF:10,",
		up.URL + "/vod/main8.ts",
	}, "\n")
	assert.Equal(t, PlaylistResponse(want), res.Response)
}

func TestProcessBoundedStopReturnsRawBody(t *testing.T) {
	bodies := map[string]string{}
	for i := 1; i <= 6; i++ {
		bodies[fmt.Sprintf("/p%d.m3u8", i)] = fmt.Sprintf("#EXTM3U\np%d.m3u8", i+1)
	}
	up := newUpstream(t, bodies)

	res := New(up.fetcher(), DefaultConfig()).Process(context.Background(), Request{URL: up.URL + "/p1.m3u8"})

	assert.Equal(t, OutcomeBoundedStop, res.Outcome)
	assert.Equal(t, 5, up.fetches())
	assert.ErrorIs(t, res.Err, ErrRedirectBound)
	assert.Equal(t, http.StatusOK, res.Response.Status)
	assert.Equal(t, ContentTypePlaylist, res.Response.ContentType)
	assert.Equal(t, "#EXTM3U\np6.m3u8", res.Response.Body)
}

func TestProcessFetchFailureIsBadGateway(t *testing.T) {
	up := newUpstream(t, map[string]string{"/a.m3u8": "#EXTM3U\ngone.m3u8"})

	res := New(up.fetcher(), DefaultConfig()).Process(context.Background(), Request{URL: up.URL + "/a.m3u8?token=secret"})

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.True(t, errors.Is(res.Err, ErrFetch))
	assert.Equal(t, http.StatusBadGateway, res.Response.Status)
	assert.Equal(t, ContentTypeText, res.Response.ContentType)
	assert.Contains(t, res.Response.Body, "hop 2 returned status 404")
	assert.NotContains(t, res.Response.Body, "secret")
}

func TestProcessPassthroughCanonicalizes(t *testing.T) {
	body := "#EXTM3U\n#EXTINF:4,\nseg1.ts\n#EXTINF:4,\nseg2.ts"
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) { return body, nil })

	res := New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase})
	assert.Equal(t, OutcomePassthrough, res.Outcome)
	assert.Equal(t, "#EXTM3U\n#EXTINF:4,\nhttps://x.test/a/b/seg1.ts\n#EXTINF:4,\nhttps://x.test/a/b/seg2.ts", res.Response.Body)
}

func TestProcessMajorityAbortIsPassthrough(t *testing.T) {
	b := newPlaylist().
		seg(4, "https://cdn.test/1.ts").
		seg(4, "https://cdn.test/2.ts").
		seg(4, "https://one.test/1.ts").
		seg(4, "https://two.test/1.ts").
		seg(4, "https://three.test/1.ts")
	body := strings.Join(b.lines, "\n")
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) { return body, nil })

	res := New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase, Strategy: StrategyMajority})
	assert.Equal(t, OutcomePassthrough, res.Outcome)
	assert.Equal(t, StrategyMajority, res.Strategy)
	assert.Empty(t, res.Ranges)
	assert.Equal(t, body, res.Response.Body)
}

func TestProcessSignatureViaAuto(t *testing.T) {
	b := newPlaylist()
	var open, closing int
	for i := 0; i < 10; i++ {
		m := b.disc()
		if i == 4 {
			open = m
			b.run("x", 4, 4, 4, 4, 3.08)
			continue
		}
		if i == 5 {
			closing = m
		}
		b.run("main", 10, 10)
	}
	body := strings.Join(b.lines, "\n")
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) { return body, nil })

	res := New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase})
	require.Equal(t, OutcomeRendered, res.Outcome)
	assert.Equal(t, StrategySignature, res.Strategy)
	assert.Equal(t, []AdRange{{Start: open, End: closing}}, res.Ranges)
	assert.NotContains(t, res.Response.Body, "3.08")
}

func TestProcessSignatureRemovesPreRoll(t *testing.T) {
	b := newPlaylist().run("ad", 4, 4, 4, 5.32, 3.72)
	for i := 0; i < 10; i++ {
		b.disc()
		b.run("main", 10, 10)
	}
	body := strings.Join(b.lines, "\n")
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) { return body, nil })

	res := New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase})
	require.Equal(t, OutcomeRendered, res.Outcome)
	assert.Equal(t, StrategySignature, res.Strategy)
	assert.Equal(t, []AdRange{{Start: 2, End: 12}}, res.Ranges)
	assert.NotContains(t, res.Response.Body, "/ad")
	assert.True(t, strings.HasPrefix(res.Response.Body, "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:10,\n"),
		"header kept and first main segment follows: %q", res.Response.Body)
}

func TestProcessMalformedIsReportedNotFatal(t *testing.T) {
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) {
		return "#EXTINF:4,\nseg.ts", nil
	})
	res := New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase, Strategy: StrategyNone})
	assert.True(t, res.Malformed)
	assert.Equal(t, OutcomePassthrough, res.Outcome)
	assert.Equal(t, "#EXTINF:4,\nhttps://x.test/a/b/seg.ts", res.Response.Body)
}

func TestProcessRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	hop := 0
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) {
		hop++
		if hop == 1 {
			return "#EXTM3U\nnext.m3u8", nil
		}
		return mediaBody, nil
	})
	New(f, DefaultConfig()).Process(context.Background(), Request{URL: testBase})

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"playlist.fetch", "playlist.fetch", "playlist.process"}, names)
}
