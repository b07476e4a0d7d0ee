// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"math"
)

// Signature is the ordered per-segment duration fingerprint of a known ad
// block.
type Signature []float64

// DefaultSignatures returns the built-in signature library. A fresh slice
// is returned on every call.
func DefaultSignatures() []Signature {
	return []Signature{
		{4, 4, 4, 5.32, 3.72},
		{4, 4, 4, 5.32, 3.88, 1.72},
		{4, 4, 4, 4, 3.08},
	}
}

// Matches reports whether durations equal s element-wise. An epsilon of
// zero demands exact equality.
func (s Signature) Matches(durations []float64, epsilon float64) bool {
	if len(durations) != len(s) {
		return false
	}
	for i, want := range s {
		got := durations[i]
		if math.IsNaN(got) {
			return false
		}
		if epsilon <= 0 {
			if got != want {
				return false
			}
			continue
		}
		if math.Abs(got-want) > epsilon {
			return false
		}
	}
	return true
}

// SignatureDetector removes the first run whose EXTINF durations match a
// known signature. Runs are the spans between consecutive discontinuity
// markers plus the leading run before the first marker. A leading match is
// removed from its first segment line through the first marker, so header
// tags survive. A run left open at end of playlist never matches.
type SignatureDetector struct {
	Signatures []Signature
	Epsilon    float64
}

func (SignatureDetector) Name() StrategyName { return StrategySignature }

func (s SignatureDetector) Detect(doc *Document) Detection {
	markers := doc.Discontinuities()
	if len(markers) == 0 {
		return Detection{Reason: "no signature matched"}
	}

	if start, ok := leadingRunStart(doc, markers[0]); ok {
		if i, ok := s.match(runDurations(doc, start-1, markers[0])); ok {
			return Detection{
				Ranges: []AdRange{{Start: start, End: markers[0]}},
				Reason: fmt.Sprintf("signature %d matched leading run", i),
			}
		}
	}

	for k := 0; k+1 < len(markers); k++ {
		open, closing := markers[k], markers[k+1]
		if i, ok := s.match(runDurations(doc, open, closing)); ok {
			return Detection{
				Ranges: []AdRange{{Start: open, End: closing}},
				Reason: fmt.Sprintf("signature %d matched run at line %d", i, open),
			}
		}
	}
	return Detection{Reason: "no signature matched"}
}

func (s SignatureDetector) match(durations []float64) (int, bool) {
	if len(durations) == 0 {
		return 0, false
	}
	for i, sig := range s.Signatures {
		if sig.Matches(durations, s.Epsilon) {
			return i, true
		}
	}
	return 0, false
}

// leadingRunStart returns the first segment line (EXTINF or URI) before
// the first marker.
func leadingRunStart(doc *Document, firstMarker int) (int, bool) {
	for i := 0; i < firstMarker; i++ {
		switch doc.Lines[i].Kind {
		case KindExtInf, KindMediaURI:
			return i, true
		}
	}
	return 0, false
}

// runDurations collects EXTINF durations strictly between open and closing.
// Unparsable durations are kept as NaN so the run cannot match.
func runDurations(doc *Document, open, closing int) []float64 {
	var out []float64
	for i := open + 1; i < closing; i++ {
		if l := doc.Lines[i]; l.Kind == KindExtInf {
			out = append(out, l.Duration)
		}
	}
	return out
}
