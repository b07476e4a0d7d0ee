// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command hlsclean serves ad-filtered HLS playlists to media players.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/hlsclean/internal/api"
	"github.com/ManuGH/hlsclean/internal/api/middleware"
	"github.com/ManuGH/hlsclean/internal/config"
	"github.com/ManuGH/hlsclean/internal/daemon"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/telemetry"
	"github.com/ManuGH/hlsclean/internal/version"
)

const serviceName = "hlsclean"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(args) > 0 {
		switch args[0] {
		case "filter":
			return runFilterCLI(ctx, args[1:], stdout, stderr)
		case "inspect":
			return runInspectCLI(ctx, args[1:], stdin, stdout, stderr)
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(ctx, args[1:], stdout, stderr)
		}
	}

	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.Get().String())
		return 0
	}
	return serve(ctx, strings.TrimSpace(*configPath))
}

func serve(ctx context.Context, configPath string) int {
	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: serviceName,
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return 1
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: serviceName,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	configSource := "env+defaults"
	if configPath != "" {
		configSource = "file"
	}
	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("config_source", configSource).
		Str("addr", cfg.Server.ListenAddr).
		Int("sources", len(cfg.Sources)).
		Msg("starting hlsclean")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Error().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialise tracing")
		return 1
	}

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("event", "startup.failed").Msg("failed to build runtime")
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return 1
	}

	holder := config.NewConfigHolder(cfg, loader)
	apiDeps := api.Deps{
		Registry:     rt.registry,
		Health:       rt.health,
		ServeMetrics: cfg.Metrics.Enabled && cfg.Metrics.ListenAddr == "",
		Stack: middleware.StackConfig{
			EnableMetrics: cfg.Metrics.Enabled,
			EnableLogging: true,
		},
	}
	if configPath != "" {
		apiDeps.Reload = holder.Reload
	}
	if cfg.Server.RateLimit.Enabled {
		apiDeps.RequestsPerMinute = cfg.Server.RateLimit.RequestsPerMinute
	}
	if tp.Enabled() {
		apiDeps.Stack.TracingService = serviceName + "/api"
	}

	apiServer, err := api.New(apiDeps)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build API server")
		_ = rt.close(ctx)
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return 1
	}

	managerDeps := daemon.Deps{
		Logger:     logger,
		APIHandler: apiServer.Handler(),
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		managerDeps.MetricsAddr = cfg.Metrics.ListenAddr
		managerDeps.MetricsHandler = promhttp.Handler()
	}

	mgr, err := daemon.NewManager(cfg.Server, managerDeps)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create daemon manager")
		_ = rt.close(ctx)
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return 1
	}
	// LIFO: sources and caches close before the tracer flushes.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("runtime", rt.close)

	app := daemon.NewApp(logger, mgr, holder, rt.apply)
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	logger.Info().Str("event", "shutdown.complete").Msg("hlsclean stopped")
	return 0
}
