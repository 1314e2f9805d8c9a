package syncleadcrm

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/application"
	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/errors"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

type MockLoader struct {
	GetFunc func(ctx context.Context, id string) (*models.Application, error)
}

func (m *MockLoader) Get(ctx context.Context, id string) (*models.Application, error) {
	return m.GetFunc(ctx, id)
}

type MockSyncer struct {
	SyncCRMFunc func(ctx context.Context, app *models.Application) (*models.NotificationResult, error)
}

func (m *MockSyncer) SyncCRM(ctx context.Context, app *models.Application) (*models.NotificationResult, error) {
	return m.SyncCRMFunc(ctx, app)
}

func TestHandler_Execute(t *testing.T) {
	loader := &MockLoader{GetFunc: func(_ context.Context, id string) (*models.Application, error) {
		if id == "missing" {
			return nil, application.ErrNotFound
		}
		return &models.Application{ID: id, Email: "layla@example.com"}, nil
	}}

	tests := []struct {
		name           string
		input          *Input
		syncer         *MockSyncer
		expectedCode   errors.ErrorCode
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "lead synced",
			input: &Input{ApplicationID: "app-001"},
			syncer: &MockSyncer{SyncCRMFunc: func(context.Context, *models.Application) (*models.NotificationResult, error) {
				return &models.NotificationResult{NotificationID: "zoho-1", Status: models.NotificationSent, SentAt: "2025-03-14T10:19:50Z"}, nil
			}},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Equal(t, "zoho-1", output.LeadID)
				assert.Equal(t, "2025-03-14T10:19:50Z", output.SyncedAt)
			},
		},
		{
			name:  "crm not configured",
			input: &Input{ApplicationID: "app-001"},
			syncer: &MockSyncer{SyncCRMFunc: func(context.Context, *models.Application) (*models.NotificationResult, error) {
				return &models.NotificationResult{NotificationID: "random", Status: models.NotificationDisabled}, nil
			}},
			validateOutput: func(t *testing.T, output *Output) {
				assert.Empty(t, output.LeadID)
				assert.Equal(t, models.NotificationDisabled, output.Status)
			},
		},
		{
			name:         "missing application",
			input:        &Input{ApplicationID: "missing"},
			expectedCode: errors.ErrCodeResourceNotFound,
		},
		{
			name:  "crm api error",
			input: &Input{ApplicationID: "app-001"},
			syncer: &MockSyncer{SyncCRMFunc: func(context.Context, *models.Application) (*models.NotificationResult, error) {
				return nil, errors.NewCRMAPIError(stderrors.New("INVALID_TOKEN"))
			}},
			expectedCode: errors.ErrCodeCRMAPIError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(DefaultConfig(), loader, tt.syncer, logger.NewTestLogger(t))
			require.NoError(t, err)

			output, err := h.Execute(context.Background(), tt.input)
			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, errors.AsStandard(err).Code)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, output)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, Timeout: 5000},
	}}
	c := LoadConfig(cfg)
	assert.False(t, c.Enabled)
	assert.Equal(t, int64(5000), c.Timeout.Milliseconds())
}
