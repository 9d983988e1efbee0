package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
	"github.com/kbukum/filevault/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	return rr
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_Panic(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json"}, "test")

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := serve(engine, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error.Code != errors.ErrCodeInternal {
		t.Errorf("unexpected code: %s", body.Error.Code)
	}
	if strings.Contains(rr.Body.String(), "test panic") {
		t.Error("panic value must not reach the client")
	}
	if !strings.Contains(buf.String(), "test panic") {
		t.Error("panic should be logged")
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	rr := serve(engine, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	id := rr.Header().Get(middleware.RequestIDHeader)
	if id == "" || rr.Body.String() != id {
		t.Fatalf("generated id %q, handler saw %q", id, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, "custom-id-123")
	if got := serve(engine, req).Header().Get(middleware.RequestIDHeader); got != "custom-id-123" {
		t.Errorf("expected custom-id-123, got %s", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.RequestIDHeader, strings.Repeat("x", 500))
	if got := serve(engine, req).Header().Get(middleware.RequestIDHeader); len(got) > 128 {
		t.Error("oversized request id should be replaced")
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"https://example.com"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://example.com")
	rr := serve(engine, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("expected https://example.com, got %s", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("expected 'GET, POST', got %s", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	if got := serve(engine, req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for disallowed origin, got %s", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", http.NoBody)
	req.Header.Set("Origin", "https://example.com")
	if rr := serve(engine, req); rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS preflight, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_RedactsShareTokens(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json"}, "test")

	engine := gin.New()
	engine.Use(middleware.RequestLogger(log))
	engine.GET("/s/:token", func(c *gin.Context) { c.Status(http.StatusGone) })
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	token := "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFG"
	serve(engine, httptest.NewRequest(http.MethodGet, "/s/"+token, http.NoBody))
	out := buf.String()
	if strings.Contains(out, token) {
		t.Errorf("full share token leaked into logs: %s", out)
	}
	if !strings.Contains(out, `"status":410`) {
		t.Errorf("request not logged: %s", out)
	}

	buf.Reset()
	serve(engine, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Errorf("health checks should not be logged: %s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	provider := auth.ProviderFunc(func(_ context.Context, token string) (*auth.Claims, error) {
		if token != "good" {
			return nil, errors.InvalidToken()
		}
		c := &auth.Claims{}
		c.Subject = "alice"
		return c, nil
	})

	engine := gin.New()
	whoami := func(c *gin.Context) { c.String(http.StatusOK, middleware.Caller(c)) }
	engine.GET("/required", middleware.RequireAuth(provider), whoami)
	engine.GET("/optional", middleware.OptionalAuth(provider), whoami)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"required ok", "/required", "Bearer good", http.StatusOK, "alice"},
		{"required lowercase scheme", "/required", "bearer good", http.StatusOK, "alice"},
		{"required missing", "/required", "", http.StatusUnauthorized, ""},
		{"required wrong scheme", "/required", "Basic good", http.StatusUnauthorized, ""},
		{"required bad token", "/required", "Bearer bad", http.StatusUnauthorized, ""},
		{"optional anonymous", "/optional", "", http.StatusOK, ""},
		{"optional ok", "/optional", "Bearer good", http.StatusOK, "alice"},
		{"optional bad token", "/optional", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(engine, req)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if tt.status == http.StatusOK && rr.Body.String() != tt.body {
				t.Errorf("caller = %q, want %q", rr.Body.String(), tt.body)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.BodySizeLimit("1KB"))
	engine.POST("/", func(c *gin.Context) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	if rr := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))); rr.Code != http.StatusOK {
		t.Errorf("small body: %d", rr.Code)
	}
	if rr := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 2048)))); rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body: %d", rr.Code)
	}
}
