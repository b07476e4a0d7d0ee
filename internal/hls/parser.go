// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"math"
	"strconv"
	"strings"

	"github.com/ManuGH/hlsclean/internal/core/urlutil"
)

const (
	tagHeader        = "#EXTM3U"
	tagExtInf        = "#EXTINF:"
	tagDiscontinuity = "#EXT-X-DISCONTINUITY"
	utf8BOM          = "\uFEFF"
)

// Parse classifies every line of text in a single pass. Media URIs are
// resolved against baseURL, which should be the URL the playlist was
// actually served from. Parse never fails: a missing #EXTM3U header is
// recorded and reported through Document.Malformed.
func Parse(text, baseURL string) *Document {
	text = strings.TrimPrefix(text, utf8BOM)
	raw := strings.Split(text, "\n")

	doc := &Document{
		SourceURL: baseURL,
		BaseURL:   baseURL,
		Lines:     make([]Line, 0, len(raw)),
		malformed: true,
	}

	seenContent := false
	for _, r := range raw {
		r = strings.TrimSuffix(r, "\r")
		line := classify(r, baseURL)
		if !seenContent && line.Kind != KindBlank {
			seenContent = true
			doc.malformed = !strings.HasPrefix(strings.TrimSpace(r), tagHeader)
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc
}

func classify(raw, baseURL string) Line {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Line{Kind: KindBlank, Raw: raw}
	case strings.HasPrefix(s, tagExtInf):
		dur, title := parseExtInf(s[len(tagExtInf):])
		return Line{Kind: KindExtInf, Raw: raw, Duration: dur, Title: title}
	case s == tagDiscontinuity:
		return Line{Kind: KindDiscontinuity, Raw: raw}
	case strings.HasPrefix(s, "#EXT"):
		name, params, _ := strings.Cut(s[1:], ":")
		return Line{Kind: KindTag, Raw: raw, Name: name, Params: params}
	case strings.HasPrefix(s, "#"):
		return Line{Kind: KindComment, Raw: raw}
	default:
		return Line{Kind: KindMediaURI, Raw: raw, URI: s, Absolute: urlutil.Resolve(baseURL, s)}
	}
}

// parseExtInf reads the leading numeric duration of an EXTINF payload such
// as "4.000,title" or "5.32 tvg-id=...,Name". Anything after the first comma
// is the title.
func parseExtInf(payload string) (float64, string) {
	value, title, _ := strings.Cut(payload, ",")
	value = strings.TrimSpace(value)

	end := 0
	for end < len(value) {
		c := value[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	d, err := strconv.ParseFloat(value[:end], 64)
	if err != nil {
		return math.NaN(), title
	}
	return d, title
}
