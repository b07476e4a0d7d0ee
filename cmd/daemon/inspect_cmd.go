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
	"os"
	"strings"

	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/core/urlutil"
	"github.com/ManuGH/hlsclean/internal/hls"
)

// runInspectCLI prints a structural summary of a playlist file or URL.
func runInspectCLI(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hlsclean inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print the summary as JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: hlsclean inspect [-json] <file|url|->")
		return 2
	}

	body, err := readPlaylist(ctx, fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	summary, err := hls.Inspect(body)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid playlist: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stdout, "type:             %s\n", summary.Type)
	if summary.Type == hls.TypeMaster {
		fmt.Fprintf(stdout, "variants:         %d\n", summary.Variants)
		return 0
	}
	fmt.Fprintf(stdout, "segments:         %d\n", summary.Segments)
	fmt.Fprintf(stdout, "discontinuities:  %d\n", summary.Discontinuities)
	fmt.Fprintf(stdout, "target duration:  %.0fs\n", summary.TargetDuration)
	fmt.Fprintf(stdout, "total duration:   %.3fs\n", summary.TotalDuration)
	fmt.Fprintf(stdout, "endlist:          %t\n", summary.Closed)
	return 0
}

func readPlaylist(ctx context.Context, arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case urlutil.IsAbsolute(arg):
		cfg := config.Defaults().Upstream
		headers := http.Header{}
		headers.Set("User-Agent", cfg.UserAgent)
		return newFetcher(cfg).Fetch(ctx, arg, headers)
	default:
		// #nosec G304 -- operator-supplied path
		b, err := os.ReadFile(strings.TrimSpace(arg))
		return string(b), err
	}
}
