// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit paces outbound playlist fetches per upstream host.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	upstreamDelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hlsclean",
			Name:      "upstream_ratelimit_delayed_total",
			Help:      "Outbound fetches that had to wait for a rate limit token",
		},
		[]string{"limit_type"},
	)
)

// Config holds outbound rate limiting configuration.
type Config struct {
	// Global limits across all upstream hosts.
	GlobalRate  rate.Limit
	GlobalBurst int

	// Per-host limits.
	PerHostRate  rate.Limit
	PerHostBurst int

	// Hosts idle for longer than this are forgotten.
	IdleTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		GlobalRate:   100,
		GlobalBurst:  200,
		PerHostRate:  10,
		PerHostBurst: 20,
		IdleTimeout:  5 * time.Minute,
	}
}

type hostEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a global token bucket plus one per upstream host.
type Limiter struct {
	config Config

	global  *rate.Limiter
	perHost map[string]*hostEntry
	mu      sync.Mutex

	lastCleanup time.Time
	now         func() time.Time
}

// New creates a new limiter with the given config.
func New(config Config) *Limiter {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultConfig().IdleTimeout
	}
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perHost:     make(map[string]*hostEntry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether a fetch to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	if !l.global.Allow() {
		upstreamDelayed.WithLabelValues("global").Inc()
		return false
	}
	if !l.hostLimiter(host).Allow() {
		upstreamDelayed.WithLabelValues("per_host").Inc()
		return false
	}
	return true
}

// Wait blocks until a fetch to host may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if !l.global.Allow() {
		upstreamDelayed.WithLabelValues("global").Inc()
		if err := l.global.Wait(ctx); err != nil {
			return fmt.Errorf("global rate limit: %w", err)
		}
	}
	hl := l.hostLimiter(host)
	if !hl.Allow() {
		upstreamDelayed.WithLabelValues("per_host").Inc()
		if err := hl.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit for %s: %w", host, err)
		}
	}
	return nil
}

// Hosts returns the number of tracked hosts.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perHost)
}

func (l *Limiter) hostLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	e, ok := l.perHost[host]
	if !ok {
		e = &hostEntry{limiter: rate.NewLimiter(l.config.PerHostRate, l.config.PerHostBurst)}
		l.perHost[host] = e
	}
	e.lastSeen = now
	return e.limiter
}

// cleanupLocked drops idle hosts at most once per idle timeout.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.IdleTimeout {
		return
	}
	for host, e := range l.perHost {
		if now.Sub(e.lastSeen) >= l.config.IdleTimeout {
			delete(l.perHost, host)
		}
	}
	l.lastCleanup = now
}

// ClientIP extracts the real client IP from the request, honouring
// X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
