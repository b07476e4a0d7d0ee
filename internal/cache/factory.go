// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Backend names a cache implementation.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// FactoryConfig selects the backend shared by every namespace.
type FactoryConfig struct {
	Backend         string
	CleanupInterval time.Duration
	Redis           RedisConfig
}

// Factory hands out per-namespace caches over a single backend.
type Factory struct {
	backend string
	cleanup time.Duration
	client  *redis.Client
	logger  zerolog.Logger
}

// NewFactory prepares the backend. For redis the connection is verified up
// front so misconfiguration surfaces at startup.
func NewFactory(ctx context.Context, cfg FactoryConfig, logger zerolog.Logger) (*Factory, error) {
	f := &Factory{backend: cfg.Backend, cleanup: cfg.CleanupInterval, logger: logger}
	if f.backend == "" {
		f.backend = BackendMemory
	}
	if f.cleanup <= 0 {
		f.cleanup = time.Minute
	}

	switch f.backend {
	case BackendMemory:
	case BackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		f.client = client
		logger.Info().
			Str("addr", cfg.Redis.Addr).
			Int("db", cfg.Redis.DB).
			Msg("connected to Redis cache")
	default:
		return nil, fmt.Errorf("unknown cache backend %q (supported: memory, redis)", cfg.Backend)
	}
	return f, nil
}

// NewFactoryWithClient builds a redis-backed factory around an existing client.
func NewFactoryWithClient(client *redis.Client, logger zerolog.Logger) *Factory {
	return &Factory{backend: BackendRedis, client: client, logger: logger}
}

// Backend returns the configured backend name.
func (f *Factory) Backend() string {
	return f.backend
}

// New returns a cache for namespace.
func (f *Factory) New(namespace string) Cache {
	if f.client != nil {
		return NewRedisCache(f.client, namespace, f.logger.With().Str("cache", namespace).Logger())
	}
	return NewMemoryCache(f.cleanup)
}

// HealthCheck pings the backend.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.client == nil {
		return nil
	}
	return f.client.Ping(ctx).Err()
}

// Close releases the backend connection.
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}
