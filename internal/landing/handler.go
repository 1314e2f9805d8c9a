package landing

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpx "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/wizard/gateway"
)

const (
	msgCreated       = "Application submitted successfully"
	msgInvalid       = "Invalid application data"
	msgRateLimited   = "Daily submission limit reached. Please try again tomorrow or contact us directly."
	msgUnprocessable = "We apologize for the inconvenience. Your application could not be processed at this time. Please try again later or contact us directly."
	errorCodeStore   = "SLA_001"
)

type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: logger.Component(log, "landing-handler")}
}

// Routes mounts the landing endpoints under /api/landing.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/application/create", h.Create)
}

type createResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *Receipt `json:"data"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := httpx.DecodeJSON(r, &body); err != nil || body == nil {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{
			Message: msgInvalid,
			Errors:  []string{"request body must be a JSON object"},
		})
		return
	}

	receipt, err := h.service.Submit(r.Context(), Request{
		Body:      body,
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
		SessionID: r.Header.Get(gateway.SessionHeader),
		Referrer:  r.Referer(),
	})

	var verr *ValidationError
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusCreated, createResponse{Success: true, Message: msgCreated, Data: receipt})
	case errors.Is(err, ErrRateLimited):
		httpx.WriteError(w, http.StatusBadRequest, msgRateLimited)
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Message: msgInvalid, Errors: verr.Messages})
	default:
		h.logger.Error("landing submission failed", map[string]interface{}{"error": err.Error()})
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorBody{
			Message:   msgUnprocessable,
			ErrorCode: errorCodeStore,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
