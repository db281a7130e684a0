package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hsm-gustavo/todo-go/internal/api/auth"
	"github.com/hsm-gustavo/todo-go/internal/api/response"
	"github.com/hsm-gustavo/todo-go/internal/config"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct {
	calls int
}

func (d *downStore) Acquire(context.Context) (*db.Store, error) {
	d.calls++
	return nil, fmt.Errorf("%w: connection refused", db.ErrUnavailable)
}

func (d *downStore) Ready() (*db.Store, bool) { return nil, false }

func newRouter(t *testing.T, stores StoreProvider) (http.Handler, *auth.AuthService) {
	t.Helper()
	return newRouterWithOrigins(t, stores, []string{"*"})
}

func newRouterWithOrigins(t *testing.T, stores StoreProvider, origins []string) (http.Handler, *auth.AuthService) {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "production", CORSOrigins: origins},
	}
	svc := auth.NewAuthService(func() string { return "test-secret" }, time.Hour, zerolog.Nop())
	h, err := SetupRoutes(cfg, stores, svc, zerolog.Nop())
	require.NoError(t, err)
	return h, svc
}

func TestRoutes_Health(t *testing.T) {
	h, _ := newRouter(t, &downStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutes_Metrics(t *testing.T) {
	h, _ := newRouter(t, &downStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_ProtectedWithoutToken(t *testing.T) {
	stores := &downStore{}
	h, _ := newRouter(t, stores)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/profile"},
		{http.MethodPut, "/profile"},
		{http.MethodGet, "/tasks"},
		{http.MethodPost, "/tasks"},
		{http.MethodPut, "/tasks/t-1"},
		{http.MethodDelete, "/tasks/t-1"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
	assert.Zero(t, stores.calls, "store must not be acquired for unauthenticated requests")
}

func TestRoutes_StoreUnavailable(t *testing.T) {
	stores := &downStore{}
	h, svc := newRouter(t, stores)

	token, _, err := svc.GenerateJWT(&db.User{ID: "u-1", Email: "a@x.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "service_unavailable", body.Error)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"x"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 2, stores.calls)
}

func TestRoutes_SecurityHeaders(t *testing.T) {
	h, _ := newRouter(t, &downStore{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRoutes_CORSCredentials(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		allowOrigin string
		credentials string
	}{
		{"wildcard", []string{"*"}, "*", ""},
		{"explicit list", []string{"https://app.test"}, "https://app.test", "true"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newRouterWithOrigins(t, &downStore{}, tc.origins)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", "https://app.test")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.allowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.credentials, rec.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
