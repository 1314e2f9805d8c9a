package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/wizard/store"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// brokenStore fails every read.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("storage unavailable")
}
func (brokenStore) Set(context.Context, string, string) error { return errors.New("storage unavailable") }
func (brokenStore) Delete(context.Context, ...string) error   { return errors.New("storage unavailable") }

func newTestWizard(t *testing.T) (*Wizard, *store.Memory, *fakeClock) {
	t.Helper()
	mem := store.NewMemory()
	clock := newFakeClock()
	return New(mem, logger.NewTestLogger(t), WithClock(clock.Now)), mem, clock
}

// walkRefinance answers every refinance question up to the contact screen.
func walkRefinance(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	_, err := w.Start(ctx)
	require.NoError(t, err)

	steps := []struct{ key, value string }{
		{KeyLoanType, "refinance"},
		{KeyResidencyStatus, "uae-resident"},
		{KeyRefinanceReason, "lower-rate"},
		{KeyCurrentRate, "3-5-to-4"},
		{KeyRemainingBalance, "500k-1m"},
		{KeyPropertyValue, "2m-5m"},
		{KeyMonthlyIncomeRefinance, "30k-50k"},
	}
	for _, s := range steps {
		_, err := w.Answer(ctx, s.key, s.value)
		require.NoError(t, err, s.key)
	}
}
