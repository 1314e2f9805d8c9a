package notify

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/zoho"
	"mortgage-funnel/internal/models"
)

type mockStarter struct {
	StartProcessFunc func(ctx context.Context, processID string, variables interface{}) (int64, error)
}

func (m *mockStarter) StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error) {
	return m.StartProcessFunc(ctx, processID, variables)
}

func newInline(t *testing.T, emails *int, created *int) *InlineDispatcher {
	crm := &MockCRM{
		Configured:      true,
		SearchLeadsFunc: func(context.Context, string) ([]zoho.Lead, error) { return nil, nil },
		CreateLeadFunc: func(context.Context, *zoho.Lead) (string, error) {
			*created++
			return "zoho-1", nil
		},
	}
	n := NewNotifier(createTestConfig(), okSES(emails), nil, crm, &recordingAuditor{}, logger.NewTestLogger(t))
	return NewInlineDispatcher(n, logger.NewTestLogger(t))
}

func TestInlineDispatcher(t *testing.T) {
	emails, created := 0, 0
	newInline(t, &emails, &created).Dispatch(context.Background(), createTestApplication("1m-2m"))
	assert.Equal(t, 1, emails)
	assert.Equal(t, 1, created)
}

func TestProcessDispatcher(t *testing.T) {
	tests := []struct {
		name         string
		startErr     error
		wantFallback bool
	}{
		{name: "process started"},
		{name: "engine unavailable falls back", startErr: stderrors.New("connection refused"), wantFallback: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emails, created := 0, 0
			var got models.LeadNotification
			starter := &mockStarter{StartProcessFunc: func(_ context.Context, processID string, vars interface{}) (int64, error) {
				assert.Equal(t, DefaultProcessID, processID)
				got = vars.(models.LeadNotification)
				return 2251799813685249, tt.startErr
			}}

			d := NewProcessDispatcher(starter, "", newInline(t, &emails, &created), logger.NewTestLogger(t))
			d.Dispatch(context.Background(), createTestApplication("above-5m"))

			assert.Equal(t, "6f1c2a9e-7d3b-4c55-9a0e-2b8f5e4d5b6c", got.ApplicationID)
			assert.Equal(t, PriorityHigh, got.Priority)
			assert.Equal(t, "AED", got.Currency)
			if tt.wantFallback {
				assert.Equal(t, 1, emails)
			} else {
				assert.Zero(t, emails)
			}
		})
	}
}
