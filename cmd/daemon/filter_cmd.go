// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/hls"
	"github.com/ManuGH/hlsclean/internal/source"
	"github.com/ManuGH/hlsclean/internal/version"
)

// runFilterCLI processes one playlist URL and writes the result.
func runFilterCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hlsclean filter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	sourceName := fs.String("source", "", "process with this source's settings")
	strategy := fs.String("strategy", "", "detection strategy: auto, positional, signature, majority, none")
	userAgent := fs.String("ua", "", "User-Agent for upstream requests")
	output := fs.String("o", "", "write the playlist to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: hlsclean filter [flags] <playlist-url>")
		return 2
	}
	target := fs.Arg(0)

	cfg, err := config.NewLoader(strings.TrimSpace(*configPath), version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	res, err := filterPlaylist(ctx, cfg, target, *sourceName, *strategy, *userAgent)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintf(stderr, "outcome=%s strategy=%s hops=%d ranges=%d removed=%d\n",
		res.Outcome, res.Strategy, res.Hops, len(res.Ranges), res.Removed)
	if res.Response.Status != http.StatusOK {
		fmt.Fprint(stderr, res.Response.Body)
		return 1
	}

	body := res.Response.Body
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	if *output != "" {
		if err := renameio.WriteFile(*output, []byte(body), 0o644); err != nil {
			fmt.Fprintf(stderr, "Failed to write %s: %v\n", *output, err)
			return 1
		}
		return 0
	}
	_, _ = io.WriteString(stdout, body)
	return 0
}

func filterPlaylist(ctx context.Context, cfg config.AppConfig, target, sourceName, strategy, userAgent string) (hls.Result, error) {
	fetcher := newFetcher(cfg.Upstream)

	if sourceName != "" {
		for _, sc := range cfg.Sources {
			if sc.Name != sourceName {
				continue
			}
			if strategy != "" {
				sc.Strategy = strategy
			}
			ua := cfg.Upstream.UserAgent
			if userAgent != "" {
				ua = userAgent
				delete(sc.Headers, "User-Agent")
			}
			a, err := source.NewAdapter(sc, cfg.Engine, source.Deps{Fetcher: fetcher, DefaultUserAgent: ua})
			if err != nil {
				return hls.Result{}, err
			}
			defer a.Destroy()
			return a.Process(ctx, target), nil
		}
		return hls.Result{}, fmt.Errorf("%w: %q", source.ErrUnknownSource, sourceName)
	}

	name, err := hls.ParseStrategy(strategy)
	if err != nil {
		return hls.Result{}, err
	}
	if userAgent == "" {
		userAgent = cfg.Upstream.UserAgent
	}
	headers := http.Header{}
	headers.Set("User-Agent", userAgent)

	engine := hls.New(fetcher, cfg.Engine.HLS())
	return engine.Process(ctx, hls.Request{URL: target, Headers: headers, Strategy: name}), nil
}
