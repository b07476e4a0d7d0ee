// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/hlsclean/internal/api/problem"
	"github.com/ManuGH/hlsclean/internal/log"
	"github.com/ManuGH/hlsclean/internal/source"
)

// proxyAction is the only `do` value player links carry.
const proxyAction = "py"

type infoSource interface {
	Info() source.Info
}

type playSourceFilter interface {
	FilterPlaySources(from, urls string) (string, string)
}

// SourceList is the body of GET /api/v1/sources.
type SourceList struct {
	Sources []source.Info `json:"sources"`
}

// PlaySources is the body of GET /api/v1/sources/{name}/play-sources.
type PlaySources struct {
	From string `json:"from"`
	URLs string `json:"urls"`
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if do := q.Get("do"); do != "" && do != proxyAction {
		problem.Write(w, r, http.StatusBadRequest, "proxy/invalid_action", "Bad Request",
			fmt.Sprintf("unsupported action %q", do))
		return
	}

	src, ok := s.lookup(w, r, q.Get("site"))
	if !ok {
		return
	}

	ctx := log.ContextWithSource(r.Context(), src.Name())
	writeResponse(w, r, src.LocalProxy(ctx, q))
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Registry.Infos()
	if infos == nil {
		infos = []source.Info{}
	}
	writeJSON(w, r, http.StatusOK, SourceList{Sources: infos})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookup(w, r, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	info := source.Info{Name: src.Name()}
	if is, ok := src.(infoSource); ok {
		info = is.Info()
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookup(w, r, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, "source/missing_id", "Bad Request", "query parameter id is required")
		return
	}
	writeJSON(w, r, http.StatusOK, src.PlayerContent(id))
}

func (s *Server) handlePlaySources(w http.ResponseWriter, r *http.Request) {
	src, ok := s.lookup(w, r, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	q := r.URL.Query()
	from, urls := q.Get("from"), q.Get("urls")
	if f, ok := src.(playSourceFilter); ok {
		from, urls = f.FilterPlaySources(from, urls)
	}
	writeJSON(w, r, http.StatusOK, PlaySources{From: from, URLs: urls})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reload == nil {
		problem.Write(w, r, http.StatusNotImplemented, "config/reload_unavailable", "Not Implemented",
			"configuration reload is not available without a config file")
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	if err := s.deps.Reload(r.Context()); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload via API failed")
		problem.Write(w, r, http.StatusUnprocessableEntity, "config/reload_failed", "Reload Failed", err.Error())
		return
	}

	logger.Info().Str(log.FieldEvent, "config.reloaded").Msg("config reloaded via API")
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "reloaded"})
}

// lookup resolves a source by name, writing a problem response on failure.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, name string) (source.Source, bool) {
	if name == "" {
		problem.Write(w, r, http.StatusBadRequest, "source/missing_site", "Bad Request", "source name is required")
		return nil, false
	}
	src, err := s.deps.Registry.Get(name)
	if errors.Is(err, source.ErrUnknownSource) {
		problem.Write(w, r, http.StatusNotFound, "source/not_found", "Not Found", err.Error())
		return nil, false
	}
	if err != nil {
		problem.Write(w, r, http.StatusServiceUnavailable, "source/unavailable", "Service Unavailable", err.Error())
		return nil, false
	}
	return src, true
}
