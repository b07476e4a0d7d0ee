// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ReadyFoldsStatuses(t *testing.T) {
	var ready atomic.Bool
	m := NewManager("v1")
	m.RegisterChecker(ReadyChecker("sources", ready.Load))
	m.RegisterChecker(PingChecker("cache", func(context.Context) error { return errors.New("redis down") }))

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusDegraded, resp.Checks["cache"].Status)
	assert.Equal(t, "redis down", resp.Checks["cache"].Error)

	ready.Store(true)
	resp = m.Ready(context.Background())
	assert.True(t, resp.Ready, "degraded components do not block readiness")
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestManager_NoCheckersIsReady(t *testing.T) {
	resp := NewManager("").Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestManager_HealthVerbose(t *testing.T) {
	m := NewManager("v2")
	m.RegisterChecker(ReadyChecker("sources", func() bool { return false }))

	quiet := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, quiet.Status)
	assert.Nil(t, quiet.Checks)
	assert.Equal(t, "v2", quiet.Version)

	verbose := m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, verbose.Status)
	assert.Contains(t, verbose.Checks, "sources")
}

func TestOpenCircuitsChecker(t *testing.T) {
	states := map[string]string{"upstream:b.test": "open", "upstream:a.test": "open", "upstream:c.test": "closed"}
	res := OpenCircuitsChecker("upstream", func() map[string]string { return states }).Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "open: upstream:a.test, upstream:b.test", res.Message)

	res = OpenCircuitsChecker("upstream", func() map[string]string { return nil }).Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
}

func TestServeReady(t *testing.T) {
	var ready atomic.Bool
	m := NewManager("v1")
	m.RegisterChecker(ReadyChecker("sources", ready.Load))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready.Store(true)
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Ready)
}

func TestServeHealth_AlwaysOK(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(ReadyChecker("sources", func() bool { return false }))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
