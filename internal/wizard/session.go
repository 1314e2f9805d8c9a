package wizard

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mortgage-funnel/internal/common/logger"
)

const (
	// SessionKey is where the session record is stored.
	SessionKey = "landingSession"

	DefaultTTL    = 30 * time.Minute
	warningWindow = 5 * time.Minute
)

// Record is the progress state of one flow attempt. Times are unix millis.
type Record struct {
	ID          string `json:"id"`
	StartTime   int64  `json:"startTime"`
	CurrentStep int    `json:"currentStep"`
	IsValid     bool   `json:"isValid"`
	LastUpdated int64  `json:"lastUpdated,omitempty"`
}

// Tracker owns the session record.
type Tracker struct {
	store SessionStore
	log   logger.Logger
	ttl   time.Duration
	now   func() time.Time
}

type TrackerOption func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithTTL sets the session lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) TrackerOption {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

func NewTracker(store SessionStore, log logger.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store: store,
		log:   logger.Component(log, "session"),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store exposes the backing store to the guard and the gateway.
func (t *Tracker) Store() SessionStore {
	return t.store
}

// Now is the tracker's clock.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Create starts a new flow attempt and returns its id.
func (t *Tracker) Create(ctx context.Context) (string, error) {
	now := t.now().UnixMilli()
	rec := Record{
		ID:          newSessionID(now),
		StartTime:   now,
		CurrentStep: 0,
		IsValid:     true,
	}
	if err := t.save(ctx, &rec); err != nil {
		return "", err
	}
	t.log.Info("session created", map[string]interface{}{"sessionId": rec.ID})
	return rec.ID, nil
}

// newSessionID renders landing_<ms>_<9 base36 chars>.
func newSessionID(ms int64) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return fmt.Sprintf("landing_%d_%s", ms, suffix[:9])
}

// Load returns the stored record, nil when there is none. A record that does
// not decode is an error.
func (t *Tracker) Load(ctx context.Context) (*Record, error) {
	raw, ok, err := t.store.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (t *Tracker) save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := t.store.Set(ctx, SessionKey, string(data)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Update ratchets currentStep up to step. It is a no-op without a valid
// session and never lowers progress.
func (t *Tracker) Update(ctx context.Context, step int) error {
	rec, err := t.Load(ctx)
	if err != nil {
		return err
	}
	if rec == nil || !rec.IsValid {
		return nil
	}
	if step > rec.CurrentStep {
		rec.CurrentStep = step
	}
	rec.LastUpdated = t.now().UnixMilli()
	return t.save(ctx, rec)
}

// IsExpired reports whether rec is older than the TTL.
func (t *Tracker) IsExpired(rec *Record) bool {
	if rec == nil {
		return true
	}
	return t.age(rec) > t.ttl
}

func (t *Tracker) age(rec *Record) time.Duration {
	return t.now().Sub(time.UnixMilli(rec.StartTime))
}

// Clear removes the session record and every answer key.
func (t *Tracker) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, StoredKeys()...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	t.log.Debug("session cleared", nil)
	return nil
}

// Recover returns the record when it is valid and unexpired, nil otherwise.
func (t *Tracker) Recover(ctx context.Context) (*Record, error) {
	rec, err := t.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.IsValid || t.IsExpired(rec) {
		return nil, nil
	}
	return rec, nil
}

// ExpiryWarning returns the minutes left, rounded up, once fewer than five
// remain. ok is false outside the warning window or without a session.
func (t *Tracker) ExpiryWarning(ctx context.Context) (minutes int, ok bool) {
	rec, err := t.Load(ctx)
	if err != nil || rec == nil {
		return 0, false
	}
	left := t.ttl - t.age(rec)
	if left >= warningWindow {
		return 0, false
	}
	if left < 0 {
		left = 0
	}
	return int(math.Ceil(left.Minutes())), true
}

// HasActive reports a valid, unexpired session. An expired session is
// cleared as a side effect.
func (t *Tracker) HasActive(ctx context.Context) bool {
	rec, err := t.Load(ctx)
	if err != nil || rec == nil || !rec.IsValid {
		return false
	}
	if t.IsExpired(rec) {
		if err := t.Clear(ctx); err != nil {
			t.log.Warn("failed to clear expired session", map[string]interface{}{"error": err.Error()})
		}
		return false
	}
	return true
}

// CurrentStep returns the stored step, 0 on any error.
func (t *Tracker) CurrentStep(ctx context.Context) int {
	rec, err := t.Load(ctx)
	if err != nil || rec == nil {
		return 0
	}
	return rec.CurrentStep
}
