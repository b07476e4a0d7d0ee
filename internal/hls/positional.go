// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

// PositionalDetector drops fixed discontinuity spans: the first marker on
// its own, then markers two to three and four to five when present.
// Markers after the fifth are never touched.
type PositionalDetector struct{}

func (PositionalDetector) Name() StrategyName { return StrategyPositional }

func (PositionalDetector) Detect(doc *Document) Detection {
	d := doc.Discontinuities()
	var ranges []AdRange
	if len(d) >= 1 {
		ranges = append(ranges, AdRange{Start: d[0], End: d[0]})
	}
	if len(d) >= 3 {
		ranges = append(ranges, AdRange{Start: d[1], End: d[2]})
	}
	if len(d) >= 5 {
		ranges = append(ranges, AdRange{Start: d[3], End: d[4]})
	}
	if len(ranges) == 0 {
		return Detection{Reason: "no discontinuity markers"}
	}
	return Detection{Ranges: ranges}
}
