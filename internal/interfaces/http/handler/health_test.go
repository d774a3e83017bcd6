package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveReady(t *testing.T, h *HealthHandler) (int, ReadyResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/ready", h.Ready)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp ReadyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rr.Code, resp
}

func TestReadyWithoutClients(t *testing.T) {
	code, resp := serveReady(t, NewHealthHandler(nil, nil, "v1"))
	if code != http.StatusServiceUnavailable || resp.Status != "not_ready" {
		t.Fatalf("ready = %d %+v", code, resp)
	}
	for _, name := range []string{"postgres", "redis"} {
		if resp.Checks[name] == nil || resp.Checks[name].Status != "missing" {
			t.Errorf("%s check = %+v", name, resp.Checks[name])
		}
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := &HealthHandler{deps: []dependency{
		{name: "postgres", check: func(context.Context) error { return nil }},
		{name: "redis", check: func(context.Context) error { return errors.New("connection refused") }},
	}}

	code, resp := serveReady(t, h)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", code)
	}
	if resp.Checks["postgres"].Status != "ok" {
		t.Errorf("postgres = %+v", resp.Checks["postgres"])
	}
	if got := resp.Checks["redis"]; got.Status != "error" || got.Error != "connection refused" {
		t.Errorf("redis = %+v", got)
	}
}

func TestReadyAllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := &HealthHandler{deps: []dependency{{name: "postgres", check: ok}, {name: "redis", check: ok}}}

	if code, resp := serveReady(t, h); code != http.StatusOK || resp.Status != "ok" {
		t.Fatalf("ready = %d %+v", code, resp)
	}
}
