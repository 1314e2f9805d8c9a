package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mortgage-funnel/internal/application"
	httpx "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/models"
)

// Repository is the slice of the application store the admin API needs.
type Repository interface {
	List(ctx context.Context, f application.Filter) (*application.Page, error)
	Export(ctx context.Context, f application.Filter) ([]models.Application, error)
	Get(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id, status, notes, actor string) (*models.Application, error)
	AddNote(ctx context.Context, id, content, actor string) (*models.Note, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status, notes, actor string) (int64, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)
	Stats(ctx context.Context, now time.Time) (*application.Stats, error)
}

// Searcher resolves free text to application ids.
type Searcher interface {
	SearchIDs(ctx context.Context, query string) ([]string, error)
	Delete(ctx context.Context, ids []string) error
}

type Handler struct {
	repo   Repository
	search Searcher
	auth   *Authenticator
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(repo Repository, auth *Authenticator, search Searcher, log logger.Logger) *Handler {
	return &Handler{
		repo:   repo,
		search: search,
		auth:   auth,
		logger: logger.Component(log, "admin-handler"),
		now:    time.Now,
	}
}

// Routes mounts the admin API. Everything except login needs a token.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.instrument)
	r.Post("/login", h.Login)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Get("/dashboard/stats", h.Stats)
		r.Get("/applications", h.List)
		r.Get("/applications/export", h.Export)
		r.Post("/applications/bulk", h.Bulk)
		r.Get("/applications/{id}", h.Get)
		r.Put("/applications/{id}/status", h.UpdateStatus)
		r.Post("/applications/{id}/notes", h.AddNote)
		r.Get("/applications/{id}/audit", h.AuditLog)
	})
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.AdminRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

func ok(w http.ResponseWriter, data interface{}, message string) {
	httpx.WriteJSON(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		h.logger.Error(message, map[string]interface{}{"error": err.Error()})
	}
	httpx.WriteError(w, status, message)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	resp, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Authentication failed", err)
		return
	}
	ok(w, resp, "")
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context(), h.now())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to fetch dashboard statistics", err)
		return
	}
	ok(w, stats, "")
}

type pagination struct {
	Current      int  `json:"current"`
	Total        int  `json:"total"`
	HasNext      bool `json:"hasNext"`
	HasPrev      bool `json:"hasPrev"`
	TotalRecords int  `json:"totalRecords"`
}

type listResponse struct {
	Applications []models.Application `json:"applications"`
	Pagination   pagination           `json:"pagination"`
}

func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func filterFrom(r *http.Request) application.Filter {
	q := r.URL.Query()
	f := application.Filter{
		Status:    q.Get("status"),
		LoanType:  q.Get("loanType"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
	}
	if f.SortBy == "" {
		f.SortBy = "createdAt"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	return f
}

// resolveSearch swaps free text for index ids when the index answers. It
// reports false when the index found nothing.
func (h *Handler) resolveSearch(ctx context.Context, f *application.Filter) bool {
	if h.search == nil || strings.TrimSpace(f.Search) == "" {
		return true
	}
	ids, err := h.search.SearchIDs(ctx, f.Search)
	if err != nil {
		h.logger.Warn("search index unavailable, using database search", map[string]interface{}{"error": err.Error()})
		return true
	}
	if len(ids) == 0 {
		return false
	}
	f.IDs = ids
	f.Search = ""
	return true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)

	page := &application.Page{Applications: []models.Application{}, Page: f.Page, Limit: f.Limit}
	if h.resolveSearch(r.Context(), &f) {
		var err error
		page, err = h.repo.List(r.Context(), f)
		if err != nil {
			h.fail(w, http.StatusInternalServerError, "Failed to fetch applications", err)
			return
		}
	}

	totalPages := page.TotalPages()
	ok(w, listResponse{
		Applications: page.Applications,
		Pagination: pagination{
			Current:      page.Page,
			Total:        totalPages,
			HasNext:      page.Page < totalPages,
			HasPrev:      page.Page > 1,
			TotalRecords: page.Total,
		},
	}, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, application.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to fetch application details", err)
		return
	}
	ok(w, app, "")
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || !models.IsValidStatus(req.Status) {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	app, err := h.repo.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, strings.TrimSpace(req.Notes), actor(r.Context()))
	if errors.Is(err, application.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to update application status", err)
		return
	}
	ok(w, app, "Application status updated successfully")
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	_ = httpx.DecodeJSON(r, &req)
	content := strings.TrimSpace(req.Note)
	if content == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Note content is required")
		return
	}

	id := chi.URLParam(r, "id")
	_, err := h.repo.AddNote(r.Context(), id, content, actor(r.Context()))
	if errors.Is(err, application.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to add note", err)
		return
	}

	app, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to add note", err)
		return
	}
	ok(w, app, "Note added successfully")
}

// Bulk actions.
const (
	BulkUpdateStatus = "update_status"
	BulkDelete       = "delete"
)

type bulkRequest struct {
	ApplicationIDs []string `json:"applicationIds"`
	Action         string   `json:"action"`
	Status         string   `json:"status"`
	Notes          string   `json:"notes"`
}

func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || len(req.ApplicationIDs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "Application IDs are required")
		return
	}

	switch req.Action {
	case BulkUpdateStatus:
		if req.Status == "" {
			httpx.WriteError(w, http.StatusBadRequest, "Status is required for bulk status update")
			return
		}
		if !models.IsValidStatus(req.Status) {
			httpx.WriteError(w, http.StatusBadRequest, "Invalid status value")
			return
		}
		n, err := h.repo.BulkUpdateStatus(r.Context(), req.ApplicationIDs, req.Status, strings.TrimSpace(req.Notes), actor(r.Context()))
		if err != nil {
			h.fail(w, http.StatusInternalServerError, "Bulk operation failed", err)
			return
		}
		ok(w, nil, fmt.Sprintf("%d applications updated successfully", n))

	case BulkDelete:
		n, err := h.repo.BulkDelete(r.Context(), req.ApplicationIDs)
		if err != nil {
			h.fail(w, http.StatusInternalServerError, "Bulk operation failed", err)
			return
		}
		if h.search != nil {
			if err := h.search.Delete(r.Context(), req.ApplicationIDs); err != nil {
				h.logger.Warn("search index cleanup failed", map[string]interface{}{"error": err.Error()})
			}
		}
		ok(w, nil, fmt.Sprintf("%d applications deleted successfully", n))

	default:
		httpx.WriteError(w, http.StatusBadRequest, "Invalid bulk action")
	}
}

func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	app, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, application.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to fetch audit log", err)
		return
	}
	entries := app.AuditLog
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	ok(w, entries, "")
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apps, err := h.repo.Export(r.Context(), application.Filter{
		Status:   q.Get("status"),
		LoanType: q.Get("loanType"),
	})
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Export failed", err)
		return
	}

	format := q.Get("format")
	if format == "" || format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=mortgage-applications.csv")
		w.WriteHeader(http.StatusOK)
		if err := WriteCSV(w, apps); err != nil {
			h.logger.Error("csv export interrupted", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	count := len(apps)
	httpx.WriteJSON(w, http.StatusOK, envelope{Success: true, Data: apps, Count: &count})
}
