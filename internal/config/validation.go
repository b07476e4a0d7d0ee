// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/ManuGH/hlsclean/internal/cache"
	"github.com/ManuGH/hlsclean/internal/hls"
	"github.com/ManuGH/hlsclean/internal/validate"
)

// sourceNamePattern keeps names safe inside query strings and metric labels.
var sourceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)

// ErrInvalidConfig wraps every failure reported by Validate.
var ErrInvalidConfig = errors.New("invalid config")

var nestedModes = []string{string(hls.NestedAny), string(hls.NestedThirdLine)}

// Validate checks the final configuration. All problems are reported at once,
// wrapped in ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if cfg.LogLevel != "" {
		if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
			v.AddError("logLevel", err.Error(), cfg.LogLevel)
		}
	}

	validateServer(v, cfg.Server)

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	validateUpstream(v, cfg.Upstream)
	validateEngine(v, cfg.Engine)

	v.OneOf("cache.backend", cfg.Cache.Backend, []string{cache.BackendMemory, cache.BackendRedis})
	if cfg.Cache.Backend == cache.BackendRedis {
		v.NotEmpty("cache.redis.addr", cfg.Cache.Redis.Addr)
	}

	validateSources(v, cfg)

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateServer(v *validate.Validator, s ServerConfig) {
	v.ListenAddr("server.listenAddr", s.ListenAddr)
	if s.PublicURL != "" {
		v.URL("server.publicURL", s.PublicURL, []string{"http", "https"})
	}
	v.PositiveDuration("server.readTimeout", s.ReadTimeout)
	v.PositiveDuration("server.writeTimeout", s.WriteTimeout)
	v.PositiveDuration("server.shutdownTimeout", s.ShutdownTimeout)
	v.NonNegative("server.maxHeaderBytes", s.MaxHeaderBytes)
	if s.RateLimit.Enabled {
		v.Positive("server.rateLimit.requestsPerMinute", s.RateLimit.RequestsPerMinute)
	}
}

func validateUpstream(v *validate.Validator, u UpstreamConfig) {
	v.PositiveDuration("upstream.timeout", u.Timeout)
	if u.MaxBodyBytes <= 0 {
		v.AddError("upstream.maxBodyBytes", "value must be positive", u.MaxBodyBytes)
	}
	if u.GlobalRate <= 0 || u.PerHostRate <= 0 {
		v.AddError("upstream.rate", "globalRate and perHostRate must be positive", [2]float64{u.GlobalRate, u.PerHostRate})
	}
	v.Positive("upstream.globalBurst", u.GlobalBurst)
	v.Positive("upstream.perHostBurst", u.PerHostBurst)
	v.Positive("upstream.breakerThreshold", u.BreakerThreshold)
	v.PositiveDuration("upstream.breakerReset", u.BreakerReset)
}

func validateEngine(v *validate.Validator, e EngineConfig) {
	v.Range("engine.maxHops", e.MaxHops, 1, 20)
	v.OneOf("engine.nestedMode", e.NestedMode, nestedModes)
	if hls.NestedMode(e.NestedMode) == hls.NestedThirdLine {
		v.NotEmpty("engine.nestedMarker", e.NestedMarker)
	}
	v.Positive("engine.discontinuityThreshold", e.DiscontinuityThreshold)
	for i, sig := range e.Signatures {
		name := fmt.Sprintf("engine.signatures[%d]", i)
		if len(sig) == 0 {
			v.AddError(name, "signature cannot be empty", sig)
			continue
		}
		for _, d := range sig {
			if d <= 0 {
				v.AddError(name, "durations must be positive", sig)
				break
			}
		}
	}
	v.FloatRange("engine.signatureEpsilon", e.SignatureEpsilon, 0, 1)
	if e.MinRetention <= 0 || e.MinRetention > 1 {
		v.AddError("engine.minRetention", "value must be in (0, 1]", e.MinRetention)
	}
}

func validateSources(v *validate.Validator, cfg AppConfig) {
	if len(cfg.Sources) == 0 {
		v.AddError("sources", "at least one source is required", nil)
		return
	}

	seen := make(map[string]struct{}, len(cfg.Sources))
	for i, src := range cfg.Sources {
		field := fmt.Sprintf("sources[%d]", i)
		if !sourceNamePattern.MatchString(src.Name) {
			v.AddError(field+".name", "must match "+sourceNamePattern.String(), src.Name)
		} else if _, dup := seen[src.Name]; dup {
			v.AddError(field+".name", "duplicate source name", src.Name)
		}
		seen[src.Name] = struct{}{}

		if _, err := src.StrategyName(); err != nil {
			v.AddError(field+".strategy", err.Error(), src.Strategy)
		}
		if src.CacheTTL < 0 {
			v.AddError(field+".cacheTTL", "cannot be negative", src.CacheTTL)
		}
		if src.NestedMode != "" {
			v.OneOf(field+".nestedMode", src.NestedMode, nestedModes)
		}
		if merged := src.EngineFor(cfg.Engine); hls.NestedMode(merged.NestedMode) == hls.NestedThirdLine {
			v.NotEmpty(field+".nestedMarker", merged.NestedMarker)
		}
	}
}
