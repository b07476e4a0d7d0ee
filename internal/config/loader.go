// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField marks a file rejected by the strict YAML decoder.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every variable the loader looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envKey(name string) string {
	key := EnvPrefix + name
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) envString(name, def string) string {
	return ParseString(l.envKey(name), def)
}
func (l *Loader) envBool(name string, def bool) bool {
	return ParseBool(l.envKey(name), def)
}
func (l *Loader) envInt(name string, def int) int {
	return ParseInt(l.envKey(name), def)
}
func (l *Loader) envInt64(name string, def int64) int64 {
	return ParseInt64(l.envKey(name), def)
}
func (l *Loader) envFloat(name string, def float64) float64 {
	return ParseFloat(l.envKey(name), def)
}
func (l *Loader) envDuration(name string, def time.Duration) time.Duration {
	return ParseDuration(l.envKey(name), def)
}
func (l *Loader) envList(name string, def []string) []string {
	return ParseStringList(l.envKey(name), def)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is defaults, strict file decode, environment, then Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing. Keys absent
// from the file keep their current value; lists present in the file replace
// the defaults wholesale.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies HLSCLEAN_* overrides. Per-source settings are file only.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)

	s := &cfg.Server
	s.ListenAddr = l.envString("LISTEN_ADDR", s.ListenAddr)
	s.PublicURL = l.envString("PUBLIC_URL", s.PublicURL)
	s.ReadTimeout = l.envDuration("READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = l.envDuration("WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = l.envDuration("IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = l.envDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RateLimit.Enabled = l.envBool("RATELIMIT_ENABLED", s.RateLimit.Enabled)
	s.RateLimit.RequestsPerMinute = l.envInt("RATELIMIT_RPM", s.RateLimit.RequestsPerMinute)

	cfg.Metrics.Enabled = l.envBool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString("METRICS_LISTEN", cfg.Metrics.ListenAddr)

	t := &cfg.Telemetry
	t.Enabled = l.envBool("TRACING_ENABLED", t.Enabled)
	t.Endpoint = l.envString("TRACING_ENDPOINT", t.Endpoint)
	t.ExporterType = l.envString("TRACING_EXPORTER", t.ExporterType)
	t.SamplingRate = l.envFloat("TRACING_SAMPLING_RATE", t.SamplingRate)
	t.Environment = l.envString("ENVIRONMENT", t.Environment)

	u := &cfg.Upstream
	u.Timeout = l.envDuration("UPSTREAM_TIMEOUT", u.Timeout)
	u.MaxBodyBytes = l.envInt64("UPSTREAM_MAX_BODY_BYTES", u.MaxBodyBytes)
	u.UserAgent = l.envString("UPSTREAM_USER_AGENT", u.UserAgent)
	u.GlobalRate = l.envFloat("UPSTREAM_GLOBAL_RATE", u.GlobalRate)
	u.PerHostRate = l.envFloat("UPSTREAM_HOST_RATE", u.PerHostRate)
	u.BreakerThreshold = l.envInt("BREAKER_THRESHOLD", u.BreakerThreshold)
	u.BreakerReset = l.envDuration("BREAKER_RESET", u.BreakerReset)

	e := &cfg.Engine
	e.MaxHops = l.envInt("MAX_HOPS", e.MaxHops)
	e.DiscontinuityThreshold = l.envInt("DISCONTINUITY_THRESHOLD", e.DiscontinuityThreshold)
	e.SignatureEpsilon = l.envFloat("SIGNATURE_EPSILON", e.SignatureEpsilon)
	e.AdKeywords = l.envList("AD_KEYWORDS", e.AdKeywords)
	e.MinRetention = l.envFloat("MIN_RETENTION", e.MinRetention)
	e.MajorityBySite = l.envBool("MAJORITY_BY_SITE", e.MajorityBySite)
	e.RewriteKeyURIs = l.envBool("REWRITE_KEY_URIS", e.RewriteKeyURIs)
	e.Validate = l.envBool("VALIDATE_OUTPUT", e.Validate)

	c := &cfg.Cache
	c.Backend = l.envString("CACHE_BACKEND", c.Backend)
	c.Redis.Addr = l.envString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = l.envString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = l.envInt("REDIS_DB", c.Redis.DB)
}
