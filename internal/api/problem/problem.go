// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/hlsclean/internal/log"
)

const (
	// HeaderRequestID carries the correlation ID on requests and responses.
	HeaderRequestID = "X-Request-ID"
	// ContentType is the media type of every problem response.
	ContentType = "application/problem+json"
)

// Details is the problem document.
type Details struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Write writes a problem response.
//
// problemType is a stable machine identifier such as "source/not_found";
// title is the short human label and detail the specific explanation.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	d := Details{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
	if r != nil {
		d.Instance = r.URL.EscapedPath()
		d.RequestID = log.RequestIDFromContext(r.Context())
	}
	if d.RequestID == "" {
		d.RequestID = w.Header().Get(HeaderRequestID)
	}

	if d.RequestID != "" {
		w.Header().Set(HeaderRequestID, d.RequestID)
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(d); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}
