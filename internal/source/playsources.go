// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import "strings"

// PlaySourceSeparator separates play sources in catalogue listings.
const PlaySourceSeparator = "$$$"

// FilterPlaySources drops every play source whose name contains one of the
// keywords (case-insensitive) together with its URL list. from and urls are
// parallel PlaySourceSeparator-joined lists; names without a matching URL
// entry are dropped. When nothing would survive, or there is nothing to
// filter, the input is returned unchanged.
func FilterPlaySources(from, urls string, keywords []string) (string, string) {
	if from == "" || urls == "" || len(keywords) == 0 {
		return from, urls
	}

	names := strings.Split(from, PlaySourceSeparator)
	lists := strings.Split(urls, PlaySourceSeparator)
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}

	var keptNames, keptLists []string
	for i, name := range names {
		if i >= len(lists) || containsAny(strings.ToLower(name), lowered) {
			continue
		}
		keptNames = append(keptNames, name)
		keptLists = append(keptLists, lists[i])
	}

	if len(keptNames) == 0 {
		return from, urls
	}
	return strings.Join(keptNames, PlaySourceSeparator), strings.Join(keptLists, PlaySourceSeparator)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
