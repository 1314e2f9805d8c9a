package syncleadcrm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mortgage-funnel/internal/application"
	"mortgage-funnel/internal/common/errors"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/models"
)

const TaskType = "sync-lead-crm"

type ApplicationLoader interface {
	Get(ctx context.Context, id string) (*models.Application, error)
}

// LeadSyncer mirrors an application into the CRM.
type LeadSyncer interface {
	SyncCRM(ctx context.Context, app *models.Application) (*models.NotificationResult, error)
}

type Handler struct {
	config *Config
	apps   ApplicationLoader
	crm    LeadSyncer
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(cfg *Config, apps ApplicationLoader, crm LeadSyncer, log logger.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := logger.Component(log, TaskType)
	return &Handler{
		config: cfg,
		apps:   apps,
		crm:    crm,
		errors: errors.NewErrorHandler(l),
		logger: l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("Processing CRM lead sync", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{
			Status:   models.NotificationDisabled,
			SyncedAt: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute upserts the lead for the referenced application.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, errors.NewInvalidRequestError("applicationId is required")
	}

	app, err := h.apps.Get(ctx, input.ApplicationID)
	if stderrors.Is(err, application.ErrNotFound) {
		return nil, errors.NewResourceNotFoundError("application", input.ApplicationID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("select", err)
	}

	res, err := h.crm.SyncCRM(ctx, app)
	if err != nil {
		return nil, err
	}

	out := &Output{Status: res.Status, SyncedAt: res.SentAt}
	if res.Status == models.NotificationSent {
		out.LeadID = res.NotificationID
	}
	h.logger.Info("CRM lead synced", map[string]interface{}{
		"applicationId": app.ID,
		"status":        res.Status,
		"leadId":        out.LeadID,
	})
	return out, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandard(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
