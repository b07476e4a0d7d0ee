// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/hlsclean/internal/cache"
)

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	// Version is stamped from the binary, never read from the file.
	Version  string `yaml:"-"`
	LogLevel string `yaml:"logLevel,omitempty"`

	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Engine    EngineConfig    `yaml:"engine"`
	Cache     CacheConfig     `yaml:"cache"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// ServerConfig configures the proxy HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// PublicURL prefixes proxy links handed to players. When empty links are
	// relative ("/proxy?...").
	PublicURL       string                 `yaml:"publicURL,omitempty"`
	ReadTimeout     time.Duration          `yaml:"readTimeout"`
	WriteTimeout    time.Duration          `yaml:"writeTimeout"`
	IdleTimeout     time.Duration          `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration          `yaml:"shutdownTimeout"`
	MaxHeaderBytes  int                    `yaml:"maxHeaderBytes"`
	RateLimit       IngressRateLimitConfig `yaml:"rateLimit"`
}

// IngressRateLimitConfig limits requests per client IP.
type IngressRateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

// MetricsConfig controls the Prometheus endpoint. An empty ListenAddr serves
// /metrics on the main listener.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	Environment  string  `yaml:"environment,omitempty"`
	ExporterType string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// UpstreamConfig governs every outbound playlist fetch.
type UpstreamConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	// UserAgent is sent when a source does not set its own.
	UserAgent string `yaml:"userAgent"`

	GlobalRate   float64 `yaml:"globalRate"`
	GlobalBurst  int     `yaml:"globalBurst"`
	PerHostRate  float64 `yaml:"perHostRate"`
	PerHostBurst int     `yaml:"perHostBurst"`

	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// EngineConfig is the file form of hls.Config.
type EngineConfig struct {
	MaxHops      int    `yaml:"maxHops"`
	NestedMode   string `yaml:"nestedMode"`
	NestedMarker string `yaml:"nestedMarker"`

	DiscontinuityThreshold int         `yaml:"discontinuityThreshold"`
	Signatures             [][]float64 `yaml:"signatures"`
	SignatureEpsilon       float64     `yaml:"signatureEpsilon"`

	AdKeywords     []string `yaml:"adKeywords"`
	MinRetention   float64  `yaml:"minRetention"`
	MajorityBySite bool     `yaml:"majorityBySite"`

	RewriteKeyURIs bool `yaml:"rewriteKeyURIs"`
	Validate       bool `yaml:"validateOutput"`
}

// CacheConfig selects the playlist cache backend shared by all sources.
type CacheConfig struct {
	Backend         string            `yaml:"backend"`
	CleanupInterval time.Duration     `yaml:"cleanupInterval"`
	Redis           cache.RedisConfig `yaml:"redis"`
}

// SourceConfig describes one upstream catalogue. Empty engine fields inherit
// from AppConfig.Engine.
type SourceConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName,omitempty"`

	Strategy     string   `yaml:"strategy"`
	NestedMode   string   `yaml:"nestedMode,omitempty"`
	NestedMarker string   `yaml:"nestedMarker,omitempty"`
	AdKeywords   []string `yaml:"adKeywords,omitempty"`

	Headers map[string]string `yaml:"headers,omitempty"`
	// PlayFilterKeywords drops play sources whose name contains any keyword.
	PlayFilterKeywords []string `yaml:"playFilterKeywords,omitempty"`
	// CacheTTL enables the processed-playlist cache when positive.
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty"`
}
