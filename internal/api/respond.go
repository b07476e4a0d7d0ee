// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/hlsclean/internal/hls"
	"github.com/ManuGH/hlsclean/internal/log"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "response.encode_failed").Msg("failed to encode JSON response")
	}
}

// writeResponse writes an engine or relay response verbatim. Streamed
// relays are copied until the upstream body ends or the client leaves.
func writeResponse(w http.ResponseWriter, r *http.Request, resp hls.Response) {
	h := w.Header()
	h.Set("Content-Type", resp.ContentType)
	if resp.Stream == nil {
		if resp.ContentType == hls.ContentTypePlaylist {
			h.Set("Cache-Control", "no-cache")
		}
		w.WriteHeader(resp.Status)
		_, _ = io.WriteString(w, resp.Body)
		return
	}

	defer func() { _ = resp.Stream.Close() }()
	// Media outlasts the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.WriteHeader(resp.Status)
	if n, err := io.Copy(w, resp.Stream); err != nil && r.Context().Err() == nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Int64("bytes", n).
			Str(log.FieldEvent, "relay.copy_failed").
			Msg("relay stream ended early")
	}
}
