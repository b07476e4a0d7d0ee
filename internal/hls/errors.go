// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hls

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("playlist fetch failed")
	// ErrMalformedPlaylist is reported when the body lacks an #EXTM3U header.
	ErrMalformedPlaylist = errors.New("malformed playlist: missing #EXTM3U header")
	// ErrRedirectBound is recorded when the hop limit stops redirect resolution.
	ErrRedirectBound = errors.New("playlist redirect bound reached")
)

// FetchError describes a failed hop.
type FetchError struct {
	URL        string
	Hop        int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s (hop %d): unexpected status %d", e.URL, e.Hop, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s (hop %d): %v", e.URL, e.Hop, e.Err)
	default:
		return fmt.Sprintf("fetch %s (hop %d) failed", e.URL, e.Hop)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }
