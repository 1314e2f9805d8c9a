// Package landing accepts applications from the public funnel.
package landing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/models"
	"mortgage-funnel/internal/ratelimit"
	"mortgage-funnel/internal/wizard"
)

const (
	maxUserAgentLength = 512
	maxReferrerLength  = 2048
)

// sessionIDPattern matches what fits the session_id column; other values are
// replaced with a fresh id.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,64}$`)

var (
	ErrValidation  = errors.New("APPLICATION_VALIDATION_FAILED")
	ErrRateLimited = errors.New("RATE_LIMIT_EXCEEDED")
	ErrStoreFailed = errors.New("SUBMISSION_FAILED")
)

// ValidationError carries the per-field messages of a rejected body.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Store persists a new application.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
}

// Limiter counts one attempt per call.
type Limiter interface {
	Allow(ctx context.Context, ip string) error
}

// Dispatcher hands a stored application to notification delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, app *models.Application)
}

// Indexer makes a stored application searchable.
type Indexer interface {
	Index(ctx context.Context, app *models.Application) error
}

// Observer records submission outcomes and latency.
type Observer interface {
	RecordSubmission(ctx context.Context, loanType, outcome string, duration time.Duration)
}

// Request is one submission with its transport metadata.
type Request struct {
	Body      map[string]interface{}
	IPAddress string
	UserAgent string
	SessionID string
	Referrer  string
}

// Receipt is what the applicant gets back.
type Receipt struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	SubmittedAt    time.Time `json:"submittedAt"`
	TrackingNumber string    `json:"trackingNumber"`
}

type Service struct {
	store      Store
	limiter    Limiter
	dispatcher Dispatcher
	indexer    Indexer
	observer   Observer
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
	async      func(func())
}

type Option func(*Service)

func WithDispatcher(d Dispatcher) Option { return func(s *Service) { s.dispatcher = d } }
func WithIndexer(i Indexer) Option       { return func(s *Service) { s.indexer = i } }
func WithObserver(o Observer) Option     { return func(s *Service) { s.observer = o } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSyncFollowUp runs dispatch and indexing before Submit returns.
func WithSyncFollowUp() Option {
	return func(s *Service) { s.async = func(f func()) { f() } }
}

func NewService(store Store, limiter Limiter, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		limiter: limiter,
		logger:  logger.Component(log, "landing-service"),
		now:     time.Now,
		newID:   uuid.NewString,
		async:   func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit rate-limits, validates and stores one application. Notification and
// indexing run afterwards and never change the outcome.
func (s *Service) Submit(ctx context.Context, req Request) (*Receipt, error) {
	start := time.Now()
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, clientAddress(req.IPAddress)); err != nil {
			if errors.Is(err, ratelimit.ErrLimitExceeded) {
				s.count(ctx, "unknown", "rate_limited", start)
				return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
			return nil, err
		}
	}

	app, messages, err := Validate(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if len(messages) > 0 {
		loanType, _ := req.Body[wizard.KeyLoanType].(string)
		s.count(ctx, labelOrUnknown(loanType), "invalid", start)
		s.logger.Info("submission rejected", map[string]interface{}{"errors": messages})
		return nil, &ValidationError{Messages: messages}
	}

	s.enrich(app, req)
	if err := s.store.Create(ctx, app); err != nil {
		s.count(ctx, app.LoanType, "failed", start)
		s.logger.Error("failed to store application", map[string]interface{}{
			"error":    err.Error(),
			"loanType": app.LoanType,
		})
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	s.count(ctx, app.LoanType, "stored", start)
	s.logger.Info("application stored", map[string]interface{}{
		"applicationId": app.ID,
		"loanType":      app.LoanType,
		"currency":      app.CurrencyDisplayed,
		"residency":     app.ResidencyStatus,
		"budgetRange":   app.BudgetRange,
		"source":        app.Source,
	})
	s.followUp(app)

	return &Receipt{
		ID:             app.ID,
		Status:         app.Status,
		SubmittedAt:    app.CreatedAt,
		TrackingNumber: app.TrackingNumber,
	}, nil
}

func (s *Service) count(ctx context.Context, loanType, outcome string, start time.Time) {
	metrics.SubmissionsTotal.WithLabelValues(loanType, outcome).Inc()
	if s.observer != nil {
		s.observer.RecordSubmission(ctx, loanType, outcome, time.Since(start))
	}
}

func (s *Service) enrich(app *models.Application, req Request) {
	now := s.now().UTC()
	app.ID = s.newID()
	app.TrackingNumber = TrackingNumber(app.ID, now)
	app.Status = models.StatusNewLead
	app.Priority = models.PriorityMedium
	app.Source = models.SourceLandingSecure
	app.CurrencyDisplayed = string(wizard.CurrencyFor(app.IsUAEResident))
	app.IPAddress = clientAddress(req.IPAddress)
	app.UserAgent = orUnknown(truncate(req.UserAgent, maxUserAgentLength))
	app.SessionID = req.SessionID
	if !sessionIDPattern.MatchString(app.SessionID) {
		app.SessionID = uuid.NewString()
	}
	app.Referrer = truncate(req.Referrer, maxReferrerLength)
	app.DataProcessingConsent = true
	app.SubmittedAt = now
	app.CreatedAt = now
	app.UpdatedAt = now
}

func (s *Service) followUp(app *models.Application) {
	if s.dispatcher == nil && s.indexer == nil {
		return
	}
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if s.indexer != nil {
			if err := s.indexer.Index(ctx, app); err != nil {
				s.logger.Warn("search indexing failed", map[string]interface{}{
					"error":         err.Error(),
					"applicationId": app.ID,
				})
			}
		}
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(ctx, app)
		}
	})
}

// TrackingNumber is NM-<base36 unix ms>-<last 4 of id>, upper case.
func TrackingNumber(id string, at time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "NM-" + stamp + "-" + strings.ToUpper(suffix)
}

// clientAddress keeps only parseable addresses; anything else is stored as
// unknown.
func clientAddress(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func labelOrUnknown(s string) string {
	for _, lt := range wizard.LoanTypes {
		if lt == s {
			return s
		}
	}
	return "unknown"
}
