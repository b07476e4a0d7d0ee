// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"fmt"
	"strings"

	"github.com/grafov/m3u8"
)

// PlaylistType distinguishes master from media playlists.
type PlaylistType string

const (
	TypeMedia  PlaylistType = "media"
	TypeMaster PlaylistType = "master"
)

// Summary is a structural digest of a playlist decoded by an independent
// HLS parser.
type Summary struct {
	Type            PlaylistType `json:"type"`
	Segments        int          `json:"segments"`
	Variants        int          `json:"variants"`
	Discontinuities int          `json:"discontinuities"`
	TargetDuration  float64      `json:"target_duration"`
	TotalDuration   float64      `json:"total_duration"`
	Closed          bool         `json:"closed"`
}

// Inspect decodes body strictly and summarises it. An error means a
// standard HLS client would likely reject the playlist.
func Inspect(body string) (Summary, error) {
	pl, listType, err := m3u8.DecodeFrom(strings.NewReader(body), true)
	if err != nil {
		return Summary{}, fmt.Errorf("decode playlist: %w", err)
	}

	switch listType {
	case m3u8.MEDIA:
		media, ok := pl.(*m3u8.MediaPlaylist)
		if !ok {
			return Summary{}, fmt.Errorf("decode playlist: unexpected media type %T", pl)
		}
		s := Summary{
			Type:           TypeMedia,
			TargetDuration: media.TargetDuration,
			Closed:         media.Closed,
		}
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			s.Segments++
			s.TotalDuration += seg.Duration
			if seg.Discontinuity {
				s.Discontinuities++
			}
		}
		return s, nil
	case m3u8.MASTER:
		master, ok := pl.(*m3u8.MasterPlaylist)
		if !ok {
			return Summary{}, fmt.Errorf("decode playlist: unexpected master type %T", pl)
		}
		return Summary{Type: TypeMaster, Variants: len(master.Variants)}, nil
	default:
		return Summary{}, fmt.Errorf("decode playlist: unknown list type %d", listType)
	}
}
