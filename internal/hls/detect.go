// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import "fmt"

// StrategyName selects an ad-range detector.
type StrategyName string

const (
	// StrategyAuto picks positional below the discontinuity threshold and
	// signature at or above it.
	StrategyAuto       StrategyName = "auto"
	StrategyPositional StrategyName = "positional"
	StrategySignature  StrategyName = "signature"
	StrategyMajority   StrategyName = "majority"
	// StrategyNone disables detection; the playlist is only canonicalized.
	StrategyNone StrategyName = "none"
)

// ParseStrategy validates a configured strategy name. Empty means auto.
func ParseStrategy(s string) (StrategyName, error) {
	switch StrategyName(s) {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyPositional, StrategySignature, StrategyMajority, StrategyNone:
		return StrategyName(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (supported: auto, positional, signature, majority, none)", s)
	}
}

// Detection is what a detector decided for one document.
type Detection struct {
	Ranges []AdRange
	// Aborted is set when a detector found candidates but declined to act
	// on them. The document must then pass through unfiltered.
	Aborted bool
	Reason  string
}

// Detector computes the line ranges to drop. Implementations hold only
// read-only configuration and are safe for concurrent use.
type Detector interface {
	Name() StrategyName
	Detect(doc *Document) Detection
}

type noneDetector struct{}

func (noneDetector) Name() StrategyName         { return StrategyNone }
func (noneDetector) Detect(*Document) Detection { return Detection{Reason: "detection disabled"} }

// autoDetector applies the discontinuity-count rule.
type autoDetector struct {
	threshold  int
	positional Detector
	signature  Detector
}

func (a autoDetector) Name() StrategyName { return StrategyAuto }

func (a autoDetector) Detect(doc *Document) Detection {
	return a.pick(doc).Detect(doc)
}

func (a autoDetector) pick(doc *Document) Detector {
	if len(doc.Discontinuities()) < a.threshold {
		return a.positional
	}
	return a.signature
}

// removedLines counts the lines covered by ranges, counting overlaps once.
func removedLines(n int, ranges []AdRange) int {
	count := 0
	for i := 0; i < n; i++ {
		if dropped(i, ranges) {
			count++
		}
	}
	return count
}
