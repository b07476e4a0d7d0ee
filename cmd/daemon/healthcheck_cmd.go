// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/hlsclean/internal/health"
	"github.com/ManuGH/hlsclean/internal/platform/httpx"
)

// probeBody covers both the liveness and readiness payloads.
type probeBody struct {
	Status health.Status                 `json:"status"`
	Checks map[string]health.CheckResult `json:"checks"`
}

func runHealthcheckCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "probe to query: ready or live")
	addr := fs.String("addr", "http://localhost:8088", "base URL of the running proxy")
	timeout := fs.Duration("timeout", 5*time.Second, "probe timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	var path string
	switch *mode {
	case "ready":
		path = "/readyz"
	case "live":
		path = "/healthz"
	default:
		fmt.Fprintf(stderr, "unknown mode %q (want ready or live)\n", *mode)
		return 2
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(*addr, "/")+path, nil)
	if err != nil {
		fmt.Fprintf(stderr, "healthcheck: %v\n", err)
		return 2
	}
	resp, err := httpx.NewClient(*timeout).Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "healthcheck %s: unreachable: %v\n", *mode, err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	var body probeBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "healthcheck %s: %s\n", *mode, resp.Status)
		for _, name := range failingChecks(body.Checks) {
			c := body.Checks[name]
			fmt.Fprintf(stderr, "  %s: %s %s\n", name, c.Status, c.Error)
		}
		return 1
	}

	fmt.Fprintf(stdout, "healthcheck %s: ok\n", *mode)
	return 0
}

func failingChecks(checks map[string]health.CheckResult) []string {
	var names []string
	for name, c := range checks {
		if c.Status != health.StatusHealthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
