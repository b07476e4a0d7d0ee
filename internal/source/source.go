// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package source turns configured catalogues into proxy adapters. An
// adapter hands players proxy links and serves those links by running the
// upstream playlist through the ad-filtering engine.
package source

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ManuGH/hlsclean/internal/hls"
)

// PlayerContent is what a media player receives for one episode: a proxy
// link plus the headers to send with it. Parse and JX are always 0, the link
// is directly playable.
type PlayerContent struct {
	URL    string            `json:"url"`
	Header map[string]string `json:"header"`
	Parse  int               `json:"parse"`
	JX     int               `json:"jx"`
}

// Info describes a source for listings.
type Info struct {
	Name         string   `json:"name"`
	DisplayName  string   `json:"displayName,omitempty"`
	Strategy     string   `json:"strategy"`
	NestedMode   string   `json:"nestedMode"`
	FilterKeys   []string `json:"playFilterKeywords,omitempty"`
	CacheEnabled bool     `json:"cacheEnabled"`
}

// Source is one catalogue behind the proxy.
type Source interface {
	Name() string
	Init(ctx context.Context) error
	PlayerContent(id string) PlayerContent
	LocalProxy(ctx context.Context, params url.Values) hls.Response
	Destroy()
}

// Base provides no-op defaults. Embed it and override what the source needs.
type Base struct {
	SourceName string
}

func (b Base) Name() string               { return b.SourceName }
func (b Base) Init(context.Context) error { return nil }
func (b Base) Destroy()                   {}
func (b Base) PlayerContent(id string) PlayerContent {
	return PlayerContent{URL: id, Header: map[string]string{}}
}

// LocalProxy reports that the source does not proxy anything.
func (b Base) LocalProxy(context.Context, url.Values) hls.Response {
	return hls.Response{
		Status:      http.StatusNotFound,
		ContentType: hls.ContentTypeText,
		Body:        "local proxy not supported by source " + b.SourceName + "\n",
	}
}
