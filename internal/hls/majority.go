// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"strings"

	"github.com/ManuGH/hlsclean/internal/core/urlutil"
)

const (
	// DefaultMinRetention is the share of segments that must survive
	// majority filtering; below it the strategy aborts.
	DefaultMinRetention = 0.5
)

// DefaultAdKeywords returns the built-in ad-indicator keywords.
func DefaultAdKeywords() []string {
	return []string{"ad", "advertisement", "promo"}
}

// MajorityDetector trusts the most frequent segment authority and drops
// every segment served from elsewhere, plus any segment whose URI or
// EXTINF line carries an ad keyword. Keywords are matched against those two
// lines only; other tags attached to a segment (keys, dates, maps) are not
// searched, so a tag such as #EXT-X-KEY with "ad" in its URI cannot
// condemn the segment.
type MajorityDetector struct {
	Keywords     []string
	MinRetention float64
	// BySite compares registrable domains instead of exact hosts.
	BySite bool
}

func (MajorityDetector) Name() StrategyName { return StrategyMajority }

func (m MajorityDetector) Detect(doc *Document) Detection {
	segs := doc.Segments()
	if len(segs) == 0 {
		return Detection{Reason: "no media segments"}
	}

	origin := urlutil.Authority
	if m.BySite {
		origin = urlutil.Site
	}
	trusted := trustedOrigin(doc, segs, origin)
	keywords := lowerAll(m.Keywords)

	var ranges []AdRange
	for _, seg := range segs {
		if origin(doc.Lines[seg.URI].Absolute) != trusted || m.hasKeyword(doc, seg, keywords) {
			ranges = append(ranges, seg.Range())
		}
	}
	if len(ranges) == 0 {
		return Detection{Reason: "all segments share the trusted origin"}
	}

	minRetention := m.MinRetention
	if minRetention <= 0 {
		minRetention = DefaultMinRetention
	}
	retained := len(segs) - len(ranges)
	if float64(retained) < minRetention*float64(len(segs)) {
		return Detection{
			Aborted: true,
			Reason:  fmt.Sprintf("would retain %d of %d segments", retained, len(segs)),
		}
	}
	return Detection{Ranges: ranges, Reason: fmt.Sprintf("trusted origin %s", trusted)}
}

// trustedOrigin returns the most frequent segment origin; ties go to the
// one seen first.
func trustedOrigin(doc *Document, segs []Segment, origin func(string) string) string {
	counts := make(map[string]int, 4)
	var order []string
	for _, seg := range segs {
		auth := origin(doc.Lines[seg.URI].Absolute)
		if _, ok := counts[auth]; !ok {
			order = append(order, auth)
		}
		counts[auth]++
	}
	best := order[0]
	for _, auth := range order[1:] {
		if counts[auth] > counts[best] {
			best = auth
		}
	}
	return best
}

func (m MajorityDetector) hasKeyword(doc *Document, seg Segment, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	candidates := []string{doc.Lines[seg.URI].URI}
	if seg.ExtInf >= 0 {
		candidates = append(candidates, doc.Lines[seg.ExtInf].Raw)
	}
	for _, c := range candidates {
		c = strings.ToLower(c)
		for _, kw := range keywords {
			if strings.Contains(c, kw) {
				return true
			}
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
