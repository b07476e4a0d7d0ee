// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream serves fixed bodies by path and records every request.
type upstream struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	hits   []string
}

func newUpstream(t *testing.T, bodies map[string]string) *upstream {
	t.Helper()
	u := &upstream{bodies: bodies}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.hits = append(u.hits, r.URL.Path)
		body, ok := u.bodies[r.URL.Path]
		u.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ContentTypePlaylist)
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) fetches() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.hits)
}

func (u *upstream) fetcher() Fetcher {
	return NewHTTPFetcher(u.Client())
}

const mediaBody = "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4,\nseg1.ts\n#EXTINF:4,\n/abs/seg2.ts\n#EXT-X-ENDLIST"

func TestResolverFollowsChain(t *testing.T) {
	up := newUpstream(t, map[string]string{
		"/a.m3u8":       "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nb/b.m3u8",
		"/b/b.m3u8":     "#EXTM3U\n/c/index.m3u8?token=1",
		"/c/index.m3u8": mediaBody,
	})

	r := NewResolver(up.fetcher(), 0, NestedAny, "")
	res, err := r.Resolve(context.Background(), up.URL+"/a.m3u8", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, up.fetches())
	assert.Equal(t, 3, res.Hops)
	assert.False(t, res.Bounded)
	assert.Equal(t, up.URL+"/c/index.m3u8?token=1", res.URL)
	assert.Equal(t, mediaBody, res.Body)
	assert.Equal(t, []string{up.URL + "/a.m3u8", up.URL + "/b/b.m3u8", up.URL + "/c/index.m3u8?token=1"}, res.Trail)
}

func TestResolverBoundedStop(t *testing.T) {
	bodies := map[string]string{"/media.m3u8": mediaBody}
	for i := 1; i <= 6; i++ {
		next := fmt.Sprintf("/p%d.m3u8", i+1)
		if i == 6 {
			next = "/media.m3u8"
		}
		bodies[fmt.Sprintf("/p%d.m3u8", i)] = "#EXTM3U\n" + next
	}
	up := newUpstream(t, bodies)

	r := NewResolver(up.fetcher(), DefaultMaxHops, NestedAny, "")
	res, err := r.Resolve(context.Background(), up.URL+"/p1.m3u8", nil)
	require.NoError(t, err)

	assert.Equal(t, 5, up.fetches())
	assert.True(t, res.Bounded)
	assert.Equal(t, 5, res.Hops)
	assert.Equal(t, "#EXTM3U\n/p6.m3u8", res.Body, "last fetched body is returned raw")
}

func TestResolverHopFailure(t *testing.T) {
	up := newUpstream(t, map[string]string{
		"/a.m3u8": "#EXTM3U\nmissing.m3u8",
	})

	r := NewResolver(up.fetcher(), 0, NestedAny, "")
	res, err := r.Resolve(context.Background(), up.URL+"/a.m3u8", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Hop)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, up.URL+"/missing.m3u8", fe.URL)
	assert.Equal(t, 1, res.Hops)
}

func TestResolverCanceledContext(t *testing.T) {
	calls := 0
	f := FetcherFunc(func(context.Context, string, http.Header) (string, error) {
		calls++
		return mediaBody, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(f, 0, NestedAny, "").Resolve(ctx, "https://x.test/a.m3u8", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls)
}

func TestResolverPassesHeaders(t *testing.T) {
	var got http.Header
	f := FetcherFunc(func(_ context.Context, _ string, h http.Header) (string, error) {
		got = h
		return mediaBody, nil
	})
	h := http.Header{"User-Agent": {"okhttp/4.1.0"}, "Referer": {"https://site.test/"}}
	_, err := NewResolver(f, 0, NestedAny, "").Resolve(context.Background(), "https://x.test/a.m3u8", h)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestNestedReference(t *testing.T) {
	anyMode := NewResolver(nil, 0, NestedAny, "")
	thirdLine := NewResolver(nil, 0, NestedThirdLine, "")

	tests := []struct {
		name     string
		r        *Resolver
		body     string
		wantRef  string
		wantNext bool
	}{
		{name: "media playlist", r: anyMode, body: mediaBody},
		{name: "variant reference", r: anyMode, body: "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nhd/index.m3u8", wantRef: "hd/index.m3u8", wantNext: true},
		{name: "uppercase extension", r: anyMode, body: "#EXTM3U\nLIST.M3U8", wantRef: "LIST.M3U8", wantNext: true},
		{name: "m3u in query only", r: anyMode, body: "#EXTM3U\n#EXTINF:4,\nseg.ts?src=a.m3u8"},
		{name: "no header", r: anyMode, body: "<html>index.m3u8</html>"},
		{name: "leading blank lines", r: anyMode, body: "\n\n#EXTM3U\nnext.m3u8", wantRef: "next.m3u8", wantNext: true},
		{name: "third line marker", r: thirdLine, body: "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\n/20240101/abc/mixed.m3u8", wantRef: "/20240101/abc/mixed.m3u8", wantNext: true},
		{name: "third line without marker", r: thirdLine, body: "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1\nindex.m3u8"},
		{name: "marker on second line", r: thirdLine, body: "#EXTM3U\nmixed.m3u8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := tt.r.NestedReference(tt.body)
			assert.Equal(t, tt.wantNext, ok)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}
