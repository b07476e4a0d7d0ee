// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"regexp"
	"strings"

	"github.com/ManuGH/hlsclean/internal/core/urlutil"
)

var uriAttr = regexp.MustCompile(`URI="([^"]*)"`)

// RenderOptions tunes serialization.
type RenderOptions struct {
	// RewriteKeyURIs also canonicalizes the URI attribute of EXT-X-KEY and
	// EXT-X-MAP tags. Off by default so tag lines stay byte-identical.
	RewriteKeyURIs bool
}

// Filter returns the lines of doc that fall outside every range, in
// original order.
func Filter(doc *Document, ranges []AdRange) []Line {
	if len(ranges) == 0 {
		return append([]Line(nil), doc.Lines...)
	}
	out := make([]Line, 0, len(doc.Lines))
	for i, l := range doc.Lines {
		if dropped(i, ranges) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func dropped(i int, ranges []AdRange) bool {
	for _, r := range ranges {
		if r.Contains(i) {
			return true
		}
	}
	return false
}

// Render serializes the retained lines of doc, joined by "\n". Media URIs
// are written in their absolute form; every other line is written verbatim.
func Render(doc *Document, ranges []AdRange, opts RenderOptions) string {
	lines := Filter(doc, ranges)
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderLine(l, doc.BaseURL, opts))
	}
	return b.String()
}

func renderLine(l Line, base string, opts RenderOptions) string {
	switch l.Kind {
	case KindMediaURI:
		if l.Absolute != "" {
			return l.Absolute
		}
		return l.URI
	case KindTag:
		if opts.RewriteKeyURIs && (l.Name == "EXT-X-KEY" || l.Name == "EXT-X-MAP") {
			return uriAttr.ReplaceAllStringFunc(l.Raw, func(m string) string {
				ref := uriAttr.FindStringSubmatch(m)[1]
				return `URI="` + urlutil.Resolve(base, ref) + `"`
			})
		}
	}
	return l.Raw
}
