// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/hlsclean/internal/config"
	xglog "github.com/ManuGH/hlsclean/internal/log"
)

// ErrUnknownSource is returned for lookups of unregistered names.
var ErrUnknownSource = errors.New("unknown source")

// Registry owns the active sources. It is built explicitly at startup and
// swapped wholesale on config reload.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	order   []string
	ready   atomic.Bool
}

// NewRegistry registers sources in order. Later duplicates replace earlier ones.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{}
	r.sources, r.order = index(sources)
	return r
}

// Build constructs one Adapter per configured source.
func Build(cfg config.AppConfig, deps Deps) ([]Source, error) {
	if deps.DefaultUserAgent == "" {
		deps.DefaultUserAgent = cfg.Upstream.UserAgent
	}
	if deps.ProxyBase == "" {
		deps.ProxyBase = cfg.Server.PublicURL
	}

	out := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		a, err := NewAdapter(sc, cfg.Engine, deps)
		if err != nil {
			for _, built := range out {
				built.Destroy()
			}
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func index(sources []Source) (map[string]Source, []string) {
	m := make(map[string]Source, len(sources))
	order := make([]string, 0, len(sources))
	for _, s := range sources {
		if _, dup := m[s.Name()]; !dup {
			order = append(order, s.Name())
		}
		m[s.Name()] = s
	}
	return m, order
}

// Init initializes every source and marks the registry ready. The first
// failure is returned and the registry stays not ready.
func (r *Registry) Init(ctx context.Context) error {
	r.mu.RLock()
	sources := r.snapshot()
	r.mu.RUnlock()

	for _, s := range sources {
		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("init source %s: %w", s.Name(), err)
		}
	}
	r.ready.Store(true)
	return nil
}

// Ready reports whether Init has completed.
func (r *Registry) Ready() bool { return r.ready.Load() }

// Get returns the named source.
func (r *Registry) Get(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s, nil
}

// Names lists source names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Infos describes every source that can describe itself.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, s := range r.snapshot() {
		if d, ok := s.(interface{ Info() Info }); ok {
			out = append(out, d.Info())
			continue
		}
		out = append(out, Info{Name: s.Name()})
	}
	return out
}

// Replace initializes the new sources, swaps them in and destroys the old
// ones, which drops their caches. On init failure nothing changes.
func (r *Registry) Replace(ctx context.Context, sources ...Source) error {
	for _, s := range sources {
		if err := s.Init(ctx); err != nil {
			for _, n := range sources {
				n.Destroy()
			}
			return fmt.Errorf("init source %s: %w", s.Name(), err)
		}
	}

	m, order := index(sources)
	r.mu.Lock()
	old := r.snapshot()
	r.sources, r.order = m, order
	r.mu.Unlock()
	r.ready.Store(true)

	for _, s := range old {
		s.Destroy()
	}
	logger := xglog.WithComponent("source")
	logger.Info().
		Str(xglog.FieldEvent, "source.registry_replaced").
		Strs("sources", order).
		Msg("source registry replaced")
	return nil
}

// Close destroys every source.
func (r *Registry) Close() {
	r.mu.Lock()
	old := r.snapshot()
	r.sources, r.order = map[string]Source{}, nil
	r.mu.Unlock()
	r.ready.Store(false)

	for _, s := range old {
		s.Destroy()
	}
}

// snapshot must be called with r.mu held.
func (r *Registry) snapshot() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}
