// Package gateway sends the finished answer set to the landing API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	commonhttp "mortgage-funnel/internal/common/http"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/wizard"
)

const (
	CreatePath    = "/api/landing/application/create"
	SessionHeader = "X-Landing-Session"
)

// FailurePolicy decides what a failed submission looks like to the caller.
type FailurePolicy string

const (
	// PolicyPretendSuccess reports a degraded success and keeps the data.
	PolicyPretendSuccess FailurePolicy = "pretend-success"
	// PolicySurfaceError keeps the data and returns the error.
	PolicySurfaceError FailurePolicy = "surface-error"
)

func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicyPretendSuccess, PolicySurfaceError:
		return FailurePolicy(s), nil
	case "":
		return PolicyPretendSuccess, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

var (
	ErrMissingFields    = errors.New("MISSING_REQUIRED_FIELDS")
	ErrSubmissionFailed = errors.New("SUBMISSION_FAILED")
)

// Result describes a submission. Degraded results were never confirmed by
// the API and carry the ledger entry id instead.
type Result struct {
	ID             string    `json:"id,omitempty"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	Status         string    `json:"status,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt,omitempty"`
	Degraded       bool      `json:"degraded"`
	PendingID      string    `json:"pendingId,omitempty"`
	Cause          string    `json:"cause,omitempty"`
}

type Config struct {
	BaseURL string
	Policy  FailurePolicy
	Timeout time.Duration
}

type Gateway struct {
	cfg     Config
	client  *commonhttp.Client
	tracker *wizard.Tracker
	ledger  PendingLedger
	log     logger.Logger
}

func New(cfg Config, tracker *wizard.Tracker, ledger PendingLedger, log logger.Logger) *Gateway {
	if cfg.Policy == "" {
		cfg.Policy = PolicyPretendSuccess
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Gateway{
		cfg:     cfg,
		client:  commonhttp.NewClient(cfg.Timeout),
		tracker: tracker,
		ledger:  ledger,
		log:     logger.Component(log, "gateway"),
	}
}

// Ledger exposes the pending submissions.
func (g *Gateway) Ledger() PendingLedger {
	return g.ledger
}

type createResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Data    struct {
		ID             string    `json:"id"`
		Status         string    `json:"status"`
		SubmittedAt    time.Time `json:"submittedAt"`
		TrackingNumber string    `json:"trackingNumber"`
	} `json:"data"`
}

// Submit checks the required fields, then makes exactly one POST. On
// success the application id is stored with the answers. On failure the
// answers stay in the store, the payload goes to the ledger and the policy
// decides whether the caller sees an error.
func (g *Gateway) Submit(ctx context.Context, answers *wizard.Answers) (*Result, error) {
	if missing := answers.MissingRequired(); len(missing) > 0 {
		metrics.WizardSubmissions.WithLabelValues("missing_fields").Inc()
		return nil, fmt.Errorf("%w: Missing required information: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	if errs := answers.Validate(); len(errs) > 0 {
		metrics.WizardSubmissions.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s", wizard.ErrInvalidAnswer, errs[0].Error())
	}

	sessionID := g.sessionID(ctx)
	payload := answers.Payload()

	res, err := g.send(ctx, sessionID, payload)
	if err == nil {
		answers.ApplicationID = res.ID
		if saveErr := answers.Save(ctx, g.tracker.Store()); saveErr != nil {
			g.log.Warn("failed to store application id", map[string]interface{}{"error": saveErr.Error()})
		}
		metrics.WizardSubmissions.WithLabelValues("success").Inc()
		g.log.Info("application submitted", map[string]interface{}{
			"applicationId":  res.ID,
			"trackingNumber": res.TrackingNumber,
			"loanType":       string(answers.Branch()),
		})
		return res, nil
	}

	return g.degrade(ctx, answers, sessionID, payload, err)
}

func (g *Gateway) degrade(ctx context.Context, answers *wizard.Answers, sessionID string, payload map[string]interface{}, cause error) (*Result, error) {
	if err := answers.Save(ctx, g.tracker.Store()); err != nil {
		g.log.Error("failed to keep answers after submission failure", map[string]interface{}{"error": err.Error()})
	}

	pending := PendingSubmission{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Payload:   payload,
		Error:     cause.Error(),
		FailedAt:  g.tracker.Now().UTC(),
	}
	if err := g.ledger.Append(ctx, pending); err != nil {
		g.log.Error("failed to record pending submission", map[string]interface{}{"error": err.Error()})
	}

	g.log.Warn("submission failed, answers kept locally", map[string]interface{}{
		"pendingId": pending.ID,
		"sessionId": sessionID,
		"policy":    string(g.cfg.Policy),
		"error":     cause.Error(),
	})

	if g.cfg.Policy == PolicySurfaceError {
		metrics.WizardSubmissions.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, cause)
	}
	metrics.WizardSubmissions.WithLabelValues("degraded").Inc()
	return &Result{Degraded: true, PendingID: pending.ID, Cause: cause.Error()}, nil
}

func (g *Gateway) send(ctx context.Context, sessionID string, payload map[string]interface{}) (*Result, error) {
	headers := map[string]string{}
	if sessionID != "" {
		headers[SessionHeader] = sessionID
	}

	resp, err := g.client.PostJSON(ctx, strings.TrimSuffix(g.cfg.BaseURL, "/")+CreatePath, headers, payload)
	if err != nil {
		return nil, err
	}

	var body createResponse
	decodeErr := resp.Decode(&body)
	if !resp.OK() {
		if decodeErr == nil && body.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body.Message)
		}
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if !body.Success || body.Data.ID == "" {
		return nil, fmt.Errorf("submission not accepted: %s", body.Message)
	}

	return &Result{
		ID:             body.Data.ID,
		TrackingNumber: body.Data.TrackingNumber,
		Status:         body.Data.Status,
		SubmittedAt:    body.Data.SubmittedAt,
	}, nil
}

func (g *Gateway) sessionID(ctx context.Context) string {
	rec, err := g.tracker.Load(ctx)
	if err != nil || rec == nil {
		return ""
	}
	return rec.ID
}

// Resend posts every ledger entry once and drops the ones the API accepts.
// It returns how many were delivered.
func (g *Gateway) Resend(ctx context.Context) (int, error) {
	pending, err := g.ledger.List(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, p := range pending {
		res, err := g.send(ctx, p.SessionID, p.Payload)
		if err != nil {
			g.log.Warn("pending submission still failing", map[string]interface{}{
				"pendingId": p.ID,
				"error":     err.Error(),
			})
			continue
		}
		if err := g.ledger.Remove(ctx, p.ID); err != nil {
			return sent, err
		}
		sent++
		g.log.Info("pending submission delivered", map[string]interface{}{
			"pendingId":     p.ID,
			"applicationId": res.ID,
		})
	}
	return sent, nil
}
