package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerdesk/portal-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Portal-Env"))
	assert.Equal(t, "live", decodeBody(t, rec)["status"])
}

func TestHealthReady(t *testing.T) {
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}
	rec := httptest.NewRecorder()
	HealthReady(testConfig(), discardLogger(), deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, map[string]any{"db": "up", "redis": "up"}, body["checks"])
}

func TestHealthReadyReportsDownDependency(t *testing.T) {
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("connection refused")}}
	rec := httptest.NewRecorder()
	HealthReady(testConfig(), discardLogger(), deps).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "down", body["checks"].(map[string]any)["redis"])
}
