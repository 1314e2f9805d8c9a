package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyTrust(t *testing.T) {
	_, err := NewProxyTrust([]string{"10.0.0.0/8", "192.0.2.10", "2001:db8::1", " "})
	require.NoError(t, err)

	_, err = NewProxyTrust([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = NewProxyTrust([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestProxyTrust_RealIP(t *testing.T) {
	trust, err := NewProxyTrust([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expectedIP string
	}{
		{
			name:       "untrusted peer ignores forwarded for",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			expectedIP: "192.0.2.1",
		},
		{
			name:       "untrusted peer ignores real ip",
			remoteAddr: "192.0.2.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			expectedIP: "192.0.2.1",
		},
		{
			name:       "trusted peer uses rightmost untrusted hop",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 198.51.100.9, 10.0.0.5"},
			expectedIP: "198.51.100.9",
		},
		{
			name:       "trusted peer falls back to real ip",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			expectedIP: "198.51.100.9",
		},
		{
			name:       "malformed hop keeps the peer address",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 10.0.0.5"},
			expectedIP: "10.1.2.3",
		},
		{
			name:       "all hops trusted keeps the peer address",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.5"},
			expectedIP: "10.1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := trust.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.expectedIP, seen)
		})
	}
}

func TestClientIP_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Real-IP", "198.51.100.2")

	assert.Equal(t, "192.0.2.1", ClientIP(req))
}
