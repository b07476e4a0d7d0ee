// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/hlsclean/internal/cache"
	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/health"
	"github.com/ManuGH/hlsclean/internal/hls"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/platform/httpx"
	"github.com/ManuGH/hlsclean/internal/ratelimit"
	"github.com/ManuGH/hlsclean/internal/resilience"
	"github.com/ManuGH/hlsclean/internal/source"
	"github.com/ManuGH/hlsclean/internal/upstream"
	"github.com/ManuGH/hlsclean/internal/version"
)

const hostIdleTimeout = 10 * time.Minute

// appRuntime is everything the daemon builds from one AppConfig.
type appRuntime struct {
	caches   *cache.Factory
	breakers *resilience.HostBreakers
	deps     source.Deps
	registry *source.Registry
	health   *health.Manager
	logger   zerolog.Logger
}

// newFetcher builds the plain HTTP fetcher used by the daemon and the CLI.
func newFetcher(cfg config.UpstreamConfig) *hls.HTTPFetcher {
	client := httpx.Instrument(httpx.NewClient(cfg.Timeout))
	return hls.NewHTTPFetcher(client,
		hls.WithTimeout(cfg.Timeout),
		hls.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
}

func newRuntime(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*appRuntime, error) {
	caches, err := cache.NewFactory(ctx, cache.FactoryConfig{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Redis:           cfg.Cache.Redis,
	}, xglog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		GlobalRate:   rate.Limit(cfg.Upstream.GlobalRate),
		GlobalBurst:  cfg.Upstream.GlobalBurst,
		PerHostRate:  rate.Limit(cfg.Upstream.PerHostRate),
		PerHostBurst: cfg.Upstream.PerHostBurst,
		IdleTimeout:  hostIdleTimeout,
	})
	breakers := resilience.NewHostBreakers(cfg.Upstream.BreakerThreshold, cfg.Upstream.BreakerReset,
		resilience.WithFailurePredicate(upstream.IsHostFailure))

	rt := &appRuntime{
		caches:   caches,
		breakers: breakers,
		deps: source.Deps{
			Fetcher: upstream.NewGuard(newFetcher(cfg.Upstream), limiter, breakers),
			Caches:  caches,
		},
		health: health.NewManager(version.Version),
		logger: logger,
	}

	sources, err := source.Build(cfg, rt.deps)
	if err != nil {
		_ = caches.Close()
		return nil, fmt.Errorf("sources: %w", err)
	}
	rt.registry = source.NewRegistry(sources...)

	rt.health.RegisterChecker(health.ReadyChecker("sources", rt.registry.Ready))
	rt.health.RegisterChecker(health.PingChecker("cache", caches.HealthCheck))
	rt.health.RegisterChecker(health.OpenCircuitsChecker("upstream_circuits", rt.breakerStates))

	if err := rt.registry.Init(ctx); err != nil {
		rt.registry.Close()
		_ = caches.Close()
		return nil, fmt.Errorf("init sources: %w", err)
	}
	return rt, nil
}

func (rt *appRuntime) breakerStates() map[string]string {
	states := rt.breakers.States()
	out := make(map[string]string, len(states))
	for host, st := range states {
		out[host] = string(st)
	}
	return out
}

// apply installs a reloaded configuration. Sources are rebuilt; the
// upstream guard, cache backend and listeners keep their startup settings.
func (rt *appRuntime) apply(ctx context.Context, cfg config.AppConfig) error {
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "hlsclean",
		Version: cfg.Version,
	})

	sources, err := source.Build(cfg, rt.deps)
	if err != nil {
		return fmt.Errorf("rebuild sources: %w", err)
	}
	if err := rt.registry.Replace(ctx, sources...); err != nil {
		return err
	}

	rt.logger.Info().
		Str("event", "config.applied").
		Strs("sources", rt.registry.Names()).
		Msg("reloaded configuration applied")
	return nil
}

func (rt *appRuntime) close(context.Context) error {
	rt.registry.Close()
	return rt.caches.Close()
}
