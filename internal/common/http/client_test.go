package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "landing_1", r.Header.Get("X-Landing-Session"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "refinance", in["loanType"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	resp, err := NewClient(time.Second).PostJSON(context.Background(), srv.URL,
		map[string]string{"X-Landing-Session": "landing_1"},
		map[string]string{"loanType": "refinance"})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	var out struct{ Success bool }
	require.NoError(t, resp.Decode(&out))
	assert.True(t, out.Success)
}

func TestPostJSON_NonSuccessIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := NewClient(time.Second).PostJSON(context.Background(), srv.URL, nil, map[string]string{})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Error(t, resp.Decode(&struct{}{}))
}

func TestPostJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewClient(time.Second).PostJSON(context.Background(), srv.URL, nil, map[string]string{})
	assert.Error(t, err)
}
