// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// playlistBuilder assembles test playlists line by line so tests can refer
// to line indices directly.
type playlistBuilder struct {
	lines []string
}

func newPlaylist() *playlistBuilder {
	return &playlistBuilder{lines: []string{"#EXTM3U", "#EXT-X-TARGETDURATION:10"}}
}

func (b *playlistBuilder) seg(d float64, uri string) *playlistBuilder {
	b.lines = append(b.lines, fmt.Sprintf("#EXTINF:%g,", d), uri)
	return b
}

func (b *playlistBuilder) run(uriPrefix string, ds ...float64) *playlistBuilder {
	for _, d := range ds {
		b.seg(d, fmt.Sprintf("%s%d.ts", uriPrefix, len(b.lines)))
	}
	return b
}

// disc appends a discontinuity marker and returns its line index.
func (b *playlistBuilder) disc() int {
	b.lines = append(b.lines, "#EXT-X-DISCONTINUITY")
	return len(b.lines) - 1
}

func (b *playlistBuilder) raw(s string) *playlistBuilder {
	b.lines = append(b.lines, s)
	return b
}

func (b *playlistBuilder) doc() *Document {
	return Parse(strings.Join(b.lines, "\n"), testBase)
}

func TestPositionalDetector(t *testing.T) {
	// Markers at [2,5,9,14,20] plus one more that must never be touched.
	markers := map[int]bool{2: true, 5: true, 9: true, 14: true, 20: true, 24: true}
	lines := []string{"#EXTM3U"}
	for i := 1; i <= 26; i++ {
		if markers[i] {
			lines = append(lines, "#EXT-X-DISCONTINUITY")
		} else {
			lines = append(lines, fmt.Sprintf("seg%d.ts", i))
		}
	}
	doc := Parse(strings.Join(lines, "\n"), testBase)
	require.Equal(t, []int{2, 5, 9, 14, 20, 24}, doc.Discontinuities())

	det := PositionalDetector{}.Detect(doc)
	want := []AdRange{{2, 2}, {5, 9}, {14, 20}}
	if diff := cmp.Diff(want, det.Ranges); diff != "" {
		t.Fatalf("ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionalDetectorFewMarkers(t *testing.T) {
	tests := []struct {
		name    string
		markers int
		want    []AdRange
	}{
		{name: "none", markers: 0, want: nil},
		{name: "one", markers: 1, want: []AdRange{{2, 2}}},
		{name: "two", markers: 2, want: []AdRange{{2, 2}}},
		{name: "four", markers: 4, want: []AdRange{{2, 2}, {5, 8}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPlaylist()
			for i := 0; i < tt.markers; i++ {
				b.disc()
				b.run("seg", 4)
			}
			det := PositionalDetector{}.Detect(b.doc())
			assert.Equal(t, tt.want, det.Ranges)
		})
	}
}

func TestSignatureDetectorExactness(t *testing.T) {
	build := func(last float64) (*Document, AdRange) {
		b := newPlaylist().run("main", 10, 10)
		open := b.disc()
		b.run("x", 4, 4, 4, 5.32, last)
		closing := b.disc()
		b.run("main", 10, 10)
		return b.doc(), AdRange{Start: open, End: closing}
	}

	exact, wantRange := build(3.72)
	near, _ := build(3.73)

	strict := SignatureDetector{Signatures: DefaultSignatures()}
	assert.Equal(t, []AdRange{wantRange}, strict.Detect(exact).Ranges)
	assert.Empty(t, strict.Detect(near).Ranges, "3.73 must not match 3.72 exactly")

	tolerant := SignatureDetector{Signatures: DefaultSignatures(), Epsilon: 0.02}
	assert.Equal(t, []AdRange{wantRange}, tolerant.Detect(near).Ranges)
}

func TestSignatureDetectorRunRules(t *testing.T) {
	strict := SignatureDetector{Signatures: DefaultSignatures()}

	t.Run("leading run before the first marker is removed", func(t *testing.T) {
		b := newPlaylist().run("x", 4, 4, 4, 5.32, 3.72)
		first := b.disc()
		b.run("main", 10)
		b.disc()
		det := strict.Detect(b.doc())
		// Lines 0 and 1 are the header and stay.
		assert.Equal(t, []AdRange{{Start: 2, End: first}}, det.Ranges)
		assert.Contains(t, det.Reason, "leading run")
	})

	t.Run("leading run is preferred over later runs", func(t *testing.T) {
		b := newPlaylist().run("x", 4, 4, 4, 4, 3.08)
		first := b.disc()
		b.run("y", 4, 4, 4, 5.32, 3.72)
		b.disc()
		assert.Equal(t, []AdRange{{Start: 2, End: first}}, strict.Detect(b.doc()).Ranges)
	})

	t.Run("leading run of another length is kept", func(t *testing.T) {
		b := newPlaylist().run("main", 10, 10, 10)
		b.disc()
		b.run("main", 10)
		b.disc()
		assert.Empty(t, strict.Detect(b.doc()).Ranges)
	})

	t.Run("playlist without markers never matches", func(t *testing.T) {
		b := newPlaylist().run("x", 4, 4, 4, 5.32, 3.72)
		assert.Empty(t, strict.Detect(b.doc()).Ranges)
	})

	t.Run("run open at end of playlist never matches", func(t *testing.T) {
		b := newPlaylist().run("main", 10)
		b.disc()
		b.run("x", 4, 4, 4, 4, 3.08)
		assert.Empty(t, strict.Detect(b.doc()).Ranges)
	})

	t.Run("length must match", func(t *testing.T) {
		b := newPlaylist()
		b.disc()
		b.run("x", 4, 4, 4, 5.32, 3.72, 1)
		b.disc()
		assert.Empty(t, strict.Detect(b.doc()).Ranges)
	})

	t.Run("only the first match is removed", func(t *testing.T) {
		b := newPlaylist()
		first := b.disc()
		b.run("x", 4, 4, 4, 5.32, 3.88, 1.72)
		second := b.disc()
		b.run("y", 4, 4, 4, 4, 3.08)
		b.disc()
		det := strict.Detect(b.doc())
		assert.Equal(t, []AdRange{{Start: first, End: second}}, det.Ranges)
	})

	t.Run("unparsable duration never matches", func(t *testing.T) {
		b := newPlaylist()
		b.disc()
		b.run("x", 4, 4, 4, 5.32)
		b.raw("#EXTINF:bogus,").raw("x.ts")
		b.disc()
		assert.Empty(t, strict.Detect(b.doc()).Ranges)
	})

	t.Run("custom library", func(t *testing.T) {
		b := newPlaylist()
		open := b.disc()
		b.run("x", 2, 2)
		closing := b.disc()
		custom := SignatureDetector{Signatures: []Signature{{2, 2}}}
		assert.Equal(t, []AdRange{{Start: open, End: closing}}, custom.Detect(b.doc()).Ranges)
	})
}

func TestMajorityDetectorDropsMinority(t *testing.T) {
	b := newPlaylist()
	var want []AdRange
	for i := 0; i < 10; i++ {
		if i == 3 || i == 7 {
			start := len(b.lines)
			b.seg(4, fmt.Sprintf("https://ads.test/x/%d.ts", i))
			want = append(want, AdRange{Start: start, End: start + 1})
			continue
		}
		b.seg(4, fmt.Sprintf("seg%02d.ts", i))
	}

	det := MajorityDetector{MinRetention: 0.5}.Detect(b.doc())
	require.False(t, det.Aborted)
	assert.Equal(t, want, det.Ranges)
}

func TestMajorityDetectorAbortsBelowRetention(t *testing.T) {
	b := newPlaylist()
	for i := 0; i < 6; i++ {
		uri := fmt.Sprintf("https://cdn.test/v/%d.ts", i)
		if i < 2 {
			uri = fmt.Sprintf("https://cdn.test/promo/%d.ts", i)
		}
		b.seg(4, uri)
	}
	for i := 0; i < 4; i++ {
		b.seg(4, fmt.Sprintf("https://other.test/v/%d.ts", i))
	}
	doc := b.doc()

	// Foreign segments alone leave 6 of 10.
	noKeywords := MajorityDetector{MinRetention: 0.5}.Detect(doc)
	assert.False(t, noKeywords.Aborted)
	assert.Len(t, noKeywords.Ranges, 4)

	// Keyword hits push retention to 4 of 10.
	withKeywords := MajorityDetector{Keywords: []string{"PROMO"}, MinRetention: 0.5}.Detect(doc)
	assert.True(t, withKeywords.Aborted)
	assert.Empty(t, withKeywords.Ranges)
}

func TestMajorityDetectorRules(t *testing.T) {
	t.Run("tie goes to first seen authority", func(t *testing.T) {
		b := newPlaylist().
			seg(4, "https://first.test/1.ts").
			seg(4, "https://second.test/1.ts").
			seg(4, "https://first.test/2.ts").
			seg(4, "https://second.test/2.ts")
		det := MajorityDetector{MinRetention: 0.5}.Detect(b.doc())
		require.False(t, det.Aborted)
		assert.Equal(t, []AdRange{{4, 5}, {8, 9}}, det.Ranges)
	})

	t.Run("attached lines go with the segment", func(t *testing.T) {
		b := newPlaylist().run("main", 4, 4, 4).
			raw("#EXTINF:4,").
			raw("#EXT-X-BYTERANGE:10@0").
			raw("https://foreign.test/x.ts")
		det := MajorityDetector{MinRetention: 0.5}.Detect(b.doc())
		assert.Equal(t, []AdRange{{8, 10}}, det.Ranges)
	})

	t.Run("keyword in extinf title", func(t *testing.T) {
		b := newPlaylist().run("main", 4, 4, 4).
			raw("#EXTINF:4,Advertisement").
			raw("main99.ts")
		det := MajorityDetector{Keywords: DefaultAdKeywords(), MinRetention: 0.5}.Detect(b.doc())
		assert.Equal(t, []AdRange{{8, 9}}, det.Ranges)
	})

	t.Run("keyword in other attached tags is ignored", func(t *testing.T) {
		b := newPlaylist().run("main", 4, 4, 4).
			raw("#EXTINF:4,").
			raw(`#EXT-X-KEY:METHOD=AES-128,URI="https://keys.test/ad.key"`).
			raw("main99.ts")
		det := MajorityDetector{Keywords: DefaultAdKeywords(), MinRetention: 0.5}.Detect(b.doc())
		assert.Empty(t, det.Ranges)
		assert.False(t, det.Aborted)
	})

	t.Run("single authority keeps everything", func(t *testing.T) {
		det := MajorityDetector{MinRetention: 0.5}.Detect(newPlaylist().run("main", 4, 4).doc())
		assert.Empty(t, det.Ranges)
		assert.False(t, det.Aborted)
	})

	t.Run("by site groups subdomains", func(t *testing.T) {
		b := newPlaylist().
			seg(4, "https://cdn1.example.com/1.ts").
			seg(4, "https://cdn2.example.com/2.ts").
			seg(4, "https://cdn1.example.com/3.ts").
			seg(4, "https://ads.other.net/ad.ts")

		byHost := MajorityDetector{MinRetention: 0.5}.Detect(b.doc())
		require.False(t, byHost.Aborted)
		assert.Equal(t, []AdRange{{4, 5}, {8, 9}}, byHost.Ranges)

		bySite := MajorityDetector{MinRetention: 0.5, BySite: true}.Detect(b.doc())
		require.False(t, bySite.Aborted)
		assert.Equal(t, []AdRange{{8, 9}}, bySite.Ranges)
	})

	t.Run("exactly half retained is allowed", func(t *testing.T) {
		b := newPlaylist().run("main", 4, 4, 4).
			seg(4, "https://b.test/1.ts").
			seg(4, "https://c.test/1.ts").
			seg(4, "https://d.test/1.ts")
		det := MajorityDetector{MinRetention: 0.5}.Detect(b.doc())
		assert.False(t, det.Aborted)
		assert.Len(t, det.Ranges, 3)
	})
}

func TestAutoDetectorThreshold(t *testing.T) {
	e := New(nil, DefaultConfig())

	few := newPlaylist()
	for i := 0; i < 9; i++ {
		few.disc()
		few.run("main", 4)
	}
	assert.Equal(t, StrategyPositional, e.Detector(StrategyAuto, few.doc()).Name())

	many := newPlaylist()
	for i := 0; i < 10; i++ {
		many.disc()
		many.run("main", 4)
	}
	assert.Equal(t, StrategySignature, e.Detector(StrategyAuto, many.doc()).Name())

	assert.Equal(t, StrategyMajority, e.Detector(StrategyMajority, many.doc()).Name())
	assert.Equal(t, StrategyNone, e.Detector(StrategyNone, nil).Name())
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, got)

	got, err = ParseStrategy("majority")
	require.NoError(t, err)
	assert.Equal(t, StrategyMajority, got)

	_, err = ParseStrategy("heuristic")
	assert.Error(t, err)
}
