package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tracehub-api/internal/config"
	"tracehub-api/internal/interfaces/http/dto"
	"tracehub-api/pkg/logger"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(mw...)
	return e
}

func TestRequestID(t *testing.T) {
	e := newEngine(RequestID())
	var seen string
	e.GET("/x", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.RequestIDKey).(string)
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"caller id kept", "req-abc", true},
		{"missing generated", "", false},
		{"control chars replaced", "bad\nid", false},
		{"too long replaced", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			e.ServeHTTP(rr, req)

			got := rr.Header().Get(RequestIDHeader)
			if got != seen {
				t.Errorf("header %q != context %q", got, seen)
			}
			if tt.keep && got != tt.header {
				t.Errorf("request id = %q, want %q", got, tt.header)
			}
			if !tt.keep && (got == tt.header || len(got) != 36) {
				t.Errorf("request id = %q, want generated uuid", got)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	e := newEngine(RequestID(), Recovery())
	e.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-panic")
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RequestID != "req-panic" || body.Error == nil || body.Error.ErrorCode == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestTraceContextCopiesRouteParams(t *testing.T) {
	e := newEngine(TraceContext())
	var project, version any
	e.GET("/projects/:pid/versions/:vid", func(c *gin.Context) {
		project = c.Request.Context().Value(logger.ProjectIDKey)
		version = c.Request.Context().Value(logger.VersionIDKey)
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/projects/p1/versions/v2", nil))

	if project != "p1" || version != "v2" {
		t.Errorf("context ids = %v/%v, want p1/v2", project, version)
	}
	if rr.Header().Get(TraceIDHeader) != "" {
		t.Errorf("trace header set without an active span")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.CORSConfig
		origin      string
		wantOrigin  string
		credentials bool
	}{
		{"wildcard", config.CORSConfig{AllowedOrigins: []string{"*"}}, "https://a.example", "*", false},
		{"empty means all", config.CORSConfig{}, "https://a.example", "*", false},
		{"listed origin", config.CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://a.example", "https://a.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(CORS(tt.cfg))
			e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			e.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.credentials {
				t.Errorf("credentials = %v, want %v", got, tt.credentials)
			}
		})
	}
}

func TestValidRequestID(t *testing.T) {
	if !validRequestID("0b7c-xyz_1") {
		t.Error("plain id rejected")
	}
	if validRequestID("has space") {
		t.Error("space accepted")
	}
}
