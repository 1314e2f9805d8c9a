package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/logger"
)

type mockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

func pinger(err error) *mockPinger {
	return &mockPinger{PingFunc: func(context.Context) error { return err }}
}

func newTestHandler(t *testing.T, checks ...Check) *Handler {
	h := NewHandler(
		config.AppConfig{Name: "mortgage-api", Version: "1.0.0", Environment: "test"},
		config.ServerConfig{
			Address:     ":5000",
			PublicURL:   "http://localhost:5000",
			FrontendURL: "http://localhost:3000",
			AdminURL:    "http://localhost:3002",
		},
		checks,
		logger.NewTestLogger(t),
	)
	h.started = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return h.started.Add(90 * time.Second) }
	return h
}

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/system", h.Routes)
	r.Get("/ready", h.Ready)
	r.Get("/health", h.Live)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestInfo(t *testing.T) {
	rec, body := serve(t, newTestHandler(t), "/api/system/info")
	require.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]interface{})
	backend := data["backend"].(map[string]interface{})
	assert.Equal(t, "http://localhost:5000/api", backend["apiBase"])
	frontend := data["frontend"].(map[string]interface{})
	assert.Equal(t, "http://localhost:3002", frontend["mortgageAdmin"])
	sys := data["system"].(map[string]interface{})
	assert.Equal(t, "test", sys["environment"])
	assert.Equal(t, "2025-03-14T10:00:00Z", sys["startTime"])
	assert.Equal(t, float64(90), sys["uptime"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		checks         []Check
		validateOutput func(t *testing.T, database map[string]interface{})
	}{
		{
			name: "all dependencies connected",
			checks: []Check{
				{Name: "postgres", Pinger: pinger(nil)},
				{Name: "redis", Pinger: pinger(nil)},
			},
			validateOutput: func(t *testing.T, database map[string]interface{}) {
				assert.Equal(t, "connected", database["postgres"])
				assert.Equal(t, "connected", database["redis"])
				assert.Equal(t, "healthy", database["status"])
			},
		},
		{
			name: "one dependency down",
			checks: []Check{
				{Name: "postgres", Pinger: pinger(nil)},
				{Name: "elasticsearch", Pinger: pinger(errors.New("connection refused"))},
			},
			validateOutput: func(t *testing.T, database map[string]interface{}) {
				assert.Equal(t, "disconnected", database["elasticsearch"])
				assert.Equal(t, "partial", database["status"])
			},
		},
		{
			name: "no dependencies configured",
			validateOutput: func(t *testing.T, database map[string]interface{}) {
				assert.Equal(t, "healthy", database["status"])
				assert.Len(t, database, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, newTestHandler(t, tt.checks...), "/api/system/health")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "healthy", body["status"])

			checks := body["checks"].(map[string]interface{})
			memory := checks["memory"].(map[string]interface{})
			assert.Contains(t, []interface{}{"healthy", "warning"}, memory["status"])
			tt.validateOutput(t, checks["database"].(map[string]interface{}))
		})
	}
}

func TestReady(t *testing.T) {
	rec, body := serve(t, newTestHandler(t, Check{Name: "postgres", Pinger: pinger(nil)}), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	rec, body = serve(t, newTestHandler(t, Check{Name: "postgres", Pinger: pinger(errors.New("timeout"))}), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, "disconnected", body["checks"].(map[string]interface{})["postgres"])
}

func TestReady_PingHasDeadline(t *testing.T) {
	var hasDeadline bool
	p := &mockPinger{PingFunc: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}}
	serve(t, newTestHandler(t, Check{Name: "redis", Pinger: p}), "/ready")
	assert.True(t, hasDeadline)
}

func TestStatusAndBackendURLs(t *testing.T) {
	h := newTestHandler(t)

	rec, body := serve(t, h, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)
	services := body["data"].(map[string]interface{})["services"].(map[string]interface{})
	assert.Equal(t, "running", services["backend"].(map[string]interface{})["status"])
	assert.Equal(t, "expected", services["admin"].(map[string]interface{})["status"])

	rec, body = serve(t, h, "/api/system/backend-urls")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "http://localhost:5000", data["recommended"])
	assert.Len(t, data["fallbacks"], 2)

	rec, body = serve(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}
