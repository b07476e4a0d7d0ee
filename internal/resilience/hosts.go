// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"sync"
	"time"
)

// HostBreakers lazily keeps one breaker per upstream host.
type HostBreakers struct {
	mu           sync.Mutex
	breakers     map[string]*CircuitBreaker
	threshold    int
	resetTimeout time.Duration
	opts         []Option
}

// NewHostBreakers builds a registry whose breakers share the given settings.
func NewHostBreakers(threshold int, resetTimeout time.Duration, opts ...Option) *HostBreakers {
	return &HostBreakers{
		breakers:     make(map[string]*CircuitBreaker),
		threshold:    threshold,
		resetTimeout: resetTimeout,
		opts:         opts,
	}
}

// For returns the breaker guarding host, creating it on first use.
func (h *HostBreakers) For(host string) *CircuitBreaker {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cb, ok := h.breakers[host]; ok {
		return cb
	}
	cb := NewCircuitBreaker("upstream:"+host, h.threshold, h.resetTimeout, h.opts...)
	h.breakers[host] = cb
	return cb
}

// States snapshots the state of every known host.
func (h *HostBreakers) States() map[string]State {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]State, len(h.breakers))
	for host, cb := range h.breakers {
		out[host] = cb.State()
	}
	return out
}
