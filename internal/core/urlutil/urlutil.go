// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package urlutil holds URL helpers shared by the playlist engine and the
// HTTP layer.
package urlutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// SanitizeURL removes user info from a URL string for safe logging.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	return parsedURL.String()
}

// IsAbsolute reports whether ref already carries an http or https scheme.
func IsAbsolute(ref string) bool {
	if len(ref) < 7 {
		return false
	}
	lower := strings.ToLower(ref[:min(len(ref), 8)])
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Authority returns "scheme://host[:port]" for rawURL, or "" when rawURL
// has no scheme or host.
func Authority(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Site returns scheme plus registrable domain (eTLD+1), so that
// "https://cdn1.example.com" and "https://cdn2.example.com" compare equal.
// IP hosts, single-label hosts and public suffixes fall back to Authority
// without the port.
func Site(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return u.Scheme + "://" + host
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = strings.ToLower(ascii)
	}
	if site, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		host = site
	}
	return u.Scheme + "://" + host
}

// Directory returns the text of rawURL up to and including its final '/'.
// Query and fragment are ignored so that a '/' inside them does not move
// the cut point.
func Directory(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	// "https://host" has no path; the directory is the root.
	if auth := Authority(s); auth != "" && i < len(auth) {
		return auth + "/"
	}
	return s[:i+1]
}

// Resolve joins ref onto the playlist URL base using the HLS proxy rules:
// absolute references are returned unchanged, root-relative references are
// prefixed with base's scheme and host, and everything else is appended to
// base's directory.
func Resolve(base, ref string) string {
	switch {
	case ref == "":
		return ref
	case IsAbsolute(ref):
		return ref
	case strings.HasPrefix(ref, "//"):
		if u, err := url.Parse(base); err == nil && u.Scheme != "" {
			return u.Scheme + ":" + ref
		}
		return ref
	case strings.HasPrefix(ref, "/"):
		auth := Authority(base)
		if auth == "" {
			return ref
		}
		return auth + ref
	default:
		dir := Directory(base)
		if dir == "" {
			return ref
		}
		return dir + ref
	}
}
