// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import "math"

// LineKind classifies a single playlist line.
type LineKind int

const (
	KindBlank LineKind = iota
	KindComment
	KindTag
	KindExtInf
	KindDiscontinuity
	KindMediaURI
)

func (k LineKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindTag:
		return "tag"
	case KindExtInf:
		return "extinf"
	case KindDiscontinuity:
		return "discontinuity"
	case KindMediaURI:
		return "media"
	default:
		return "unknown"
	}
}

// Line is one classified playlist line. Raw always holds the verbatim text
// (minus a trailing carriage return); the other fields are populated
// according to Kind.
type Line struct {
	Kind LineKind
	Raw  string

	// KindTag
	Name   string
	Params string

	// KindExtInf. Duration is NaN when the value could not be parsed.
	Duration float64
	Title    string

	// KindMediaURI
	URI      string
	Absolute string
}

// HasDuration reports whether an EXTINF line carried a parsable duration.
func (l Line) HasDuration() bool {
	return l.Kind == KindExtInf && !math.IsNaN(l.Duration)
}

// AdRange is an inclusive range of line indices to drop.
type AdRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether index i lies inside the range.
func (r AdRange) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Segment groups an optional EXTINF line with the media URI it describes.
// Start and End are the inclusive line span of the segment; ExtInf is -1
// when the URI had no preceding EXTINF.
type Segment struct {
	ExtInf int
	URI    int
	Start  int
	End    int
}

// Range returns the segment's line span.
func (s Segment) Range() AdRange {
	return AdRange{Start: s.Start, End: s.End}
}

// Document is a parsed playlist. It is built per request and never mutated
// after Parse returns.
type Document struct {
	SourceURL string
	BaseURL   string
	Lines     []Line

	malformed bool
}

// Malformed reports whether the playlist lacked a leading #EXTM3U header.
func (d *Document) Malformed() bool {
	return d.malformed
}

// Discontinuities returns the line indices of every #EXT-X-DISCONTINUITY.
func (d *Document) Discontinuities() []int {
	var out []int
	for i, l := range d.Lines {
		if l.Kind == KindDiscontinuity {
			out = append(out, i)
		}
	}
	return out
}

// Segments derives the segment groupings. An EXTINF that is not followed by
// a media URI before the next EXTINF or discontinuity is left ungrouped.
func (d *Document) Segments() []Segment {
	var (
		out     []Segment
		pending = -1
	)
	for i, l := range d.Lines {
		switch l.Kind {
		case KindExtInf:
			pending = i
		case KindDiscontinuity:
			pending = -1
		case KindMediaURI:
			seg := Segment{ExtInf: pending, URI: i, Start: i, End: i}
			if pending >= 0 {
				seg.Start = pending
			}
			out = append(out, seg)
			pending = -1
		}
	}
	return out
}
