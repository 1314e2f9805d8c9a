package landing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
	"mortgage-funnel/internal/ratelimit"
)

func newTestRouter(t *testing.T, store Store) http.Handler {
	limiter := ratelimit.New(ratelimit.NewMemoryCounter(), 2, logger.NewTestLogger(t))
	h := NewHandler(newTestService(t, store, limiter), logger.NewTestLogger(t))
	r := chi.NewRouter()
	r.Route("/api/landing", h.Routes)
	return r
}

func postJSON(t *testing.T, router http.Handler, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return postJSONFrom(t, router, "", body, headers)
}

func postJSONFrom(t *testing.T, router http.Handler, remoteAddr string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/landing/application/create", bytes.NewReader(raw))
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Create(t *testing.T) {
	var stored *models.Application
	router := newTestRouter(t, &mockStore{CreateFunc: func(_ context.Context, app *models.Application) error {
		stored = app
		return nil
	}})

	rec := postJSONFrom(t, router, "203.0.113.7:5123", validBody(), map[string]string{
		"X-Landing-Session": "landing_1741947590305_k3j9x2m1p",
		"X-Forwarded-For":   "198.51.100.77",
		"User-Agent":        "get-mortgage/1.0",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool
		Message string
		Data    map[string]interface{}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Application submitted successfully", resp.Message)
	assert.Equal(t, "New Lead", resp.Data["status"])
	assert.NotEmpty(t, resp.Data["trackingNumber"])
	assert.NotEmpty(t, resp.Data["submittedAt"])

	require.NotNil(t, stored)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)
	assert.Equal(t, "landing_1741947590305_k3j9x2m1p", stored.SessionID)
	assert.Equal(t, "get-mortgage/1.0", stored.UserAgent)
	assert.Equal(t, "AED", stored.CurrencyDisplayed)
}

func TestHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createErr      error
		expectedStatus int
		validateOutput func(t *testing.T, body map[string]interface{})
	}{
		{
			name:           "validation errors listed",
			body:           map[string]interface{}{"loanType": "refinance", "isUAEResident": "yes"},
			expectedStatus: http.StatusBadRequest,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Invalid application data", body["message"])
				assert.Contains(t, body["errors"], "isUAEResident must be a boolean value")
			},
		},
		{
			name:           "not an object",
			body:           []string{"a"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "store failure",
			body:           validBody(),
			createErr:      errors.New("pq: too many connections"),
			expectedStatus: http.StatusInternalServerError,
			validateOutput: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "SLA_001", body["errorCode"])
				assert.NotEmpty(t, body["timestamp"])
				assert.Equal(t, false, body["success"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &mockStore{CreateFunc: func(context.Context, *models.Application) error {
				return tt.createErr
			}})

			rec := postJSON(t, router, tt.body, nil)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.validateOutput != nil {
				tt.validateOutput(t, body)
			}
		})
	}
}

func TestHandler_DailyLimit(t *testing.T) {
	router := newTestRouter(t, &mockStore{CreateFunc: func(context.Context, *models.Application) error { return nil }})
	addr := "198.51.100.4:40000"

	assert.Equal(t, http.StatusBadRequest, postJSONFrom(t, router, addr, map[string]interface{}{}, nil).Code)
	assert.Equal(t, http.StatusCreated, postJSONFrom(t, router, addr, validBody(), nil).Code)

	rec := postJSONFrom(t, router, addr, validBody(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Daily submission limit reached")

	assert.Equal(t, http.StatusCreated, postJSONFrom(t, router, "198.51.100.5:40000", validBody(), nil).Code)
}

func TestHandler_DailyLimitIgnoresForwardedHeaders(t *testing.T) {
	router := newTestRouter(t, &mockStore{CreateFunc: func(context.Context, *models.Application) error { return nil }})

	accepted := 0
	for i := 0; i < 10; i++ {
		rec := postJSONFrom(t, router, "192.0.2.1:1234", validBody(), map[string]string{
			"X-Forwarded-For": fmt.Sprintf("198.51.100.%d", i),
			"X-Real-IP":       fmt.Sprintf("203.0.113.%d", i),
		})
		if rec.Code == http.StatusCreated {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)
}
