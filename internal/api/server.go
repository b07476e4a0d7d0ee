// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the playlist proxy and the management endpoints over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/hlsclean/internal/api/middleware"
	"github.com/ManuGH/hlsclean/internal/api/problem"
	"github.com/ManuGH/hlsclean/internal/health"
	xglog "github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/source"
)

var (
	// ErrMissingRegistry is returned when a server is built without sources.
	ErrMissingRegistry = errors.New("source registry is required")
	// ErrMissingHealth is returned when a server is built without a health manager.
	ErrMissingHealth = errors.New("health manager is required")
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Registry *source.Registry
	Health   *health.Manager

	// Reload re-reads the configuration. Nil disables the reload endpoint.
	Reload func(ctx context.Context) error

	// ServeMetrics mounts the Prometheus handler at /metrics.
	ServeMetrics bool

	// RequestsPerMinute limits /proxy and /api per client IP. Zero disables it.
	RequestsPerMinute int

	Stack middleware.StackConfig
}

// Server is the HTTP front of the gateway.
type Server struct {
	deps   Deps
	router *chi.Mux
	logger zerolog.Logger
}

// New builds the router.
func New(deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, ErrMissingRegistry
	}
	if deps.Health == nil {
		return nil, ErrMissingHealth
	}

	s := &Server{
		deps:   deps,
		router: middleware.NewRouter(deps.Stack),
		logger: xglog.WithComponent("api"),
	}
	s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	if s.deps.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.deps.RequestsPerMinute))

		r.Get(source.ProxyPath, s.handleProxy)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/sources", s.handleListSources)
			r.Get("/sources/{name}", s.handleGetSource)
			r.Get("/sources/{name}/player", s.handlePlayer)
			r.Get("/sources/{name}/play-sources", s.handlePlaySources)
			r.Post("/config/reload", s.handleReload)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "")
	})
}
