package http

import (
	"encoding/json"
	"net"
	"net/http"
)

// WriteJSON encodes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorBody is the failure envelope every handler returns.
type ErrorBody struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Errors    interface{} `json:"errors,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// WriteError writes {success:false, message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Success: false, Message: message})
}

// DecodeJSON reads the request body into out.
func DecodeJSON(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(out)
}

// ClientIP is the host part of the connection address. Forwarding headers
// only count once ProxyTrust.RealIP has accepted them.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
