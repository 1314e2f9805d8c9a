// Package server assembles the HTTP API: the landing, admin and system
// routes behind shared middleware, plus probes and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mortgage-funnel/internal/common/config"
	httpx "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
)

// Mount attaches a route group under Pattern.
type Mount struct {
	Pattern string
	Routes  func(r chi.Router)
}

// Probes serves the liveness and readiness endpoints.
type Probes interface {
	Live(w http.ResponseWriter, r *http.Request)
	Ready(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	cfg    config.ServerConfig
	router chi.Router
	logger logger.Logger
}

func New(cfg config.ServerConfig, probes Probes, log logger.Logger, mounts ...Mount) *Server {
	s := &Server{cfg: cfg, logger: logger.Component(log, "http")}

	trust, err := httpx.NewProxyTrust(cfg.TrustedProxies)
	if err != nil {
		s.logger.Error("ignoring trusted proxies", map[string]interface{}{"error": err.Error()})
		trust = &httpx.ProxyTrust{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(trust.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors(cfg.FrontendURL, cfg.AdminURL))

	r.Get("/health", probes.Live)
	r.Get("/ready", probes.Ready)
	r.Handle("/metrics", promhttp.Handler())

	for _, m := range mounts {
		r.Route(m.Pattern, m.Routes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "Route not found")
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.router,
		ReadTimeout:  config.GetDuration(s.cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(s.cfg.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{"address": s.cfg.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(s.cfg.ShutdownTimeout))
	defer cancel()
	s.logger.Info("shutting down HTTP server", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"durationMs": elapsed.Milliseconds(),
			"requestId":  middleware.GetReqID(r.Context()),
			"remoteAddr": r.RemoteAddr,
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed", fields)
			return
		}
		s.logger.Debug("request served", fields)
	})
}

// cors allows the configured frontends to call the API from the browser.
func cors(origins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o != "" {
			allowed[o] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[origin] {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Landing-Session")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && origin != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
