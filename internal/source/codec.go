// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrBadEncoding is returned when a proxy url parameter is not base64.
var ErrBadEncoding = errors.New("url parameter is not valid base64")

// EncodeURL encodes a playlist URL for the url query parameter of a proxy link.
func EncodeURL(raw string) string {
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeURL reverses EncodeURL. Players and intermediaries mangle the value
// in different ways, so the standard and URL-safe alphabets are accepted with
// or without padding, and spaces left by form decoding are read as '+'.
func DecodeURL(encoded string) (string, error) {
	if strings.TrimSpace(encoded) == "" {
		return "", ErrBadEncoding
	}
	// Spaces become '+' before trimming so a trailing '+' is not lost.
	s := strings.Trim(strings.ReplaceAll(encoded, " ", "+"), "\r\n\t")

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil && utf8.Valid(b) {
			return string(b), nil
		}
	}
	return "", ErrBadEncoding
}
