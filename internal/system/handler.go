// Package system serves the service information and dependency health
// endpoints used by the frontends and the deployment probes.
package system

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"

	"mortgage-funnel/internal/common/config"
	httpx "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
)

const (
	statusHealthy      = "healthy"
	statusPartial      = "partial"
	statusWarning      = "warning"
	statusConnected    = "connected"
	statusDisconnected = "disconnected"

	memoryWarnBytes = 500 << 20
	pingTimeout     = 2 * time.Second
)

// Pinger is satisfied by the database clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named dependency probed by the health endpoints.
type Check struct {
	Name   string
	Pinger Pinger
}

type Handler struct {
	app     config.AppConfig
	server  config.ServerConfig
	checks  []Check
	started time.Time
	now     func() time.Time
	logger  logger.Logger
}

func NewHandler(app config.AppConfig, server config.ServerConfig, checks []Check, log logger.Logger) *Handler {
	return &Handler{
		app:     app,
		server:  server,
		checks:  checks,
		started: time.Now(),
		now:     time.Now,
		logger:  logger.Component(log, "system"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/info", h.Info)
	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
	r.Get("/backend-urls", h.BackendURLs)
}

func (h *Handler) uptime() float64 {
	return h.now().Sub(h.started).Seconds()
}

func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"backend": map[string]interface{}{
				"address": h.server.Address,
				"url":     h.server.PublicURL,
				"apiBase": h.server.PublicURL + "/api",
			},
			"frontend": map[string]interface{}{
				"main":          h.server.FrontendURL,
				"mortgageAdmin": h.server.AdminURL,
			},
			"system": map[string]interface{}{
				"name":        h.app.Name,
				"environment": h.app.Environment,
				"version":     h.app.Version,
				"startTime":   h.started.UTC().Format(time.RFC3339),
				"uptime":      h.uptime(),
			},
		},
	})
}

// probe pings every check and reports connected or disconnected per name.
func (h *Handler) probe(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.Pinger.Ping(pctx)
		cancel()
		if err != nil {
			h.logger.Warn("dependency check failed", map[string]interface{}{
				"dependency": c.Name,
				"error":      err.Error(),
			})
			results[c.Name] = statusDisconnected
			healthy = false
			continue
		}
		results[c.Name] = statusConnected
	}
	return results, healthy
}

func memoryStatus() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	status := statusHealthy
	if m.HeapAlloc >= memoryWarnBytes {
		status = statusWarning
	}
	return map[string]interface{}{
		"sys":       m.Sys,
		"heapAlloc": m.HeapAlloc,
		"heapSys":   m.HeapSys,
		"status":    status,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	deps, healthy := h.probe(r.Context())
	database := make(map[string]interface{}, len(deps)+1)
	for name, status := range deps {
		database[name] = status
	}
	database["status"] = statusHealthy
	if !healthy {
		database["status"] = statusPartial
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      statusHealthy,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"uptime":      h.uptime(),
		"environment": h.app.Environment,
		"checks": map[string]interface{}{
			"database": database,
			"memory":   memoryStatus(),
		},
	})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"services": map[string]interface{}{
				"backend":  map[string]string{"status": "running", "url": h.server.PublicURL},
				"frontend": map[string]string{"status": "expected", "url": h.server.FrontendURL},
				"admin":    map[string]string{"status": "expected", "url": h.server.AdminURL},
			},
			"timestamp": h.now().UTC().Format(time.RFC3339),
		},
	})
}

func (h *Handler) BackendURLs(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"recommended": h.server.PublicURL,
			"active":      []string{h.server.PublicURL},
			"fallbacks":   []string{"http://localhost:5000", "http://127.0.0.1:5000"},
		},
	})
}

// Live answers the liveness probe without touching dependencies.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": statusHealthy,
		"time":   h.now().Format(time.RFC3339),
	})
}

// Ready answers 503 until every dependency responds.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	deps, healthy := h.probe(r.Context())
	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": deps,
		"time":   h.now().Format(time.RFC3339),
	})
}
