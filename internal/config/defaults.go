// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/hlsclean/internal/cache"
	"github.com/ManuGH/hlsclean/internal/hls"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HLSCLEAN_"

	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"
	tvUserAgent      = "Mozilla/5.0 (Linux; Android 4.4; TV Build/KOT49H) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.104 Safari/537.36 TV Safari/4.0"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8088",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
			RateLimit: IngressRateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
			},
		},
		Metrics: MetricsConfig{Enabled: true},
		Telemetry: TelemetryConfig{
			ServiceName:  "hlsclean",
			ExporterType: "grpc",
			SamplingRate: 1.0,
		},
		Upstream: UpstreamConfig{
			Timeout:          hls.DefaultFetchTimeout,
			MaxBodyBytes:     hls.DefaultMaxBodyBytes,
			UserAgent:        desktopUserAgent,
			GlobalRate:       50,
			GlobalBurst:      100,
			PerHostRate:      10,
			PerHostBurst:     20,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Engine:  defaultEngine(),
		Cache:   CacheConfig{Backend: cache.BackendMemory, CleanupInterval: time.Minute},
		Sources: defaultSources(),
	}
}

func defaultEngine() EngineConfig {
	d := hls.DefaultConfig()
	sigs := make([][]float64, 0, len(d.Signatures))
	for _, s := range d.Signatures {
		sigs = append(sigs, append([]float64(nil), s...))
	}
	return EngineConfig{
		MaxHops:                d.MaxHops,
		NestedMode:             string(d.NestedMode),
		NestedMarker:           d.NestedMarker,
		DiscontinuityThreshold: d.DiscontinuityThreshold,
		Signatures:             sigs,
		SignatureEpsilon:       d.SignatureEpsilon,
		AdKeywords:             d.AdKeywords,
		MinRetention:           d.MinRetention,
	}
}

// defaultSources are the stock catalogues. They share one engine
// configuration and drift only in per-source overrides.
func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:               "feifan",
			DisplayName:        "非凡资源",
			Strategy:           string(hls.StrategyAuto),
			NestedMode:         string(hls.NestedAny),
			Headers:            map[string]string{"User-Agent": desktopUserAgent},
			PlayFilterKeywords: []string{"feifan"},
		},
		{
			Name:               "baofeng",
			DisplayName:        "暴风资源",
			Strategy:           string(hls.StrategyAuto),
			NestedMode:         string(hls.NestedAny),
			Headers:            map[string]string{"User-Agent": desktopUserAgent},
			PlayFilterKeywords: []string{"feifan"},
		},
		{
			Name:               "ruyi",
			DisplayName:        "如意资源",
			Strategy:           string(hls.StrategyMajority),
			NestedMode:         string(hls.NestedThirdLine),
			NestedMarker:       hls.DefaultNestedMarker,
			Headers:            map[string]string{"User-Agent": desktopUserAgent},
			PlayFilterKeywords: []string{"ruyi"},
		},
		{
			Name:        "zuida",
			DisplayName: "最大资源",
			Strategy:    string(hls.StrategyMajority),
			NestedMode:  string(hls.NestedAny),
			Headers:     map[string]string{"User-Agent": tvUserAgent},
		},
		{
			Name:        "youzhi",
			DisplayName: "优质资源",
			Strategy:    string(hls.StrategyNone),
			NestedMode:  string(hls.NestedAny),
			Headers:     map[string]string{"User-Agent": desktopUserAgent},
		},
	}
}
