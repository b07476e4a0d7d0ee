// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/hlsclean/internal/api/problem"
	"github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/metrics"
	"github.com/ManuGH/hlsclean/internal/ratelimit"
)

// RateLimit limits each client IP to requestsPerMinute over a sliding
// one-minute window. A non-positive limit disables the middleware.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ratelimit.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.IncRateLimited("ingress")
			logger := log.WithComponentFromContext(r.Context(), "ratelimit")
			logger.Warn().
				Str(log.FieldEvent, "ratelimit.exceeded").
				Str(log.FieldPath, r.URL.Path).
				Str(log.FieldRemoteAddr, ratelimit.ClientIP(r)).
				Msg("rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(60))
			problem.Write(w, r, http.StatusTooManyRequests, "system/rate_limited",
				"Too Many Requests", "rate limit exceeded, retry later")
		}),
	)
}
