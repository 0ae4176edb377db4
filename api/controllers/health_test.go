package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/dispo-backend/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := httptest.NewRecorder()

	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Dispo-Env"); got != "dev" {
		t.Fatalf("expected env header dev got %q", got)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}, "pubsub": nil}
	rec := httptest.NewRecorder()

	HealthReady(cfg, deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestHealthReadyDependencyDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("connection refused")}}
	rec := httptest.NewRecorder()

	HealthReady(cfg, deps, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
