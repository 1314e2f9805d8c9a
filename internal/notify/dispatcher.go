package notify

import (
	"context"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/models"
)

// DefaultProcessID is the BPMN process started for every stored lead.
const DefaultProcessID = "mortgage-lead-intake"

// ProcessStarter starts a workflow instance. camunda.Client satisfies it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// InlineDispatcher runs the notifier in the calling goroutine.
type InlineDispatcher struct {
	notifier *Notifier
	logger   logger.Logger
}

func NewInlineDispatcher(n *Notifier, log logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{notifier: n, logger: logger.Component(log, "lead-dispatcher")}
}

// Dispatch emails the team then syncs the CRM. Failures are already audited
// by the notifier and only logged here.
func (d *InlineDispatcher) Dispatch(ctx context.Context, app *models.Application) {
	if res, err := d.notifier.NotifyTeam(ctx, app); err != nil {
		d.logger.Warn("team notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	} else {
		d.logger.Debug("team notification finished", map[string]interface{}{
			"applicationId": app.ID,
			"status":        res.Status,
		})
	}

	if _, err := d.notifier.SyncCRM(ctx, app); err != nil {
		d.logger.Warn("CRM sync failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
}

// ProcessDispatcher hands the lead to the workflow engine, whose notify-lead
// and sync-lead-crm jobs do the delivery. When the engine cannot be reached
// the fallback runs instead.
type ProcessDispatcher struct {
	starter   ProcessStarter
	processID string
	fallback  *InlineDispatcher
	logger    logger.Logger
}

func NewProcessDispatcher(starter ProcessStarter, processID string, fallback *InlineDispatcher, log logger.Logger) *ProcessDispatcher {
	if processID == "" {
		processID = DefaultProcessID
	}
	return &ProcessDispatcher{
		starter:   starter,
		processID: processID,
		fallback:  fallback,
		logger:    logger.Component(log, "lead-dispatcher"),
	}
}

// Variables builds the process variables for app.
func Variables(app *models.Application) models.LeadNotification {
	return models.LeadNotification{
		ApplicationID:  app.ID,
		TrackingNumber: app.TrackingNumber,
		Priority:       EmailPriority(app),
		Currency:       app.CurrencyDisplayed,
	}
}

func (d *ProcessDispatcher) Dispatch(ctx context.Context, app *models.Application) {
	key, err := d.starter.StartProcess(ctx, d.processID, Variables(app))
	if err == nil {
		d.logger.Info("lead intake process started", map[string]interface{}{
			"applicationId":      app.ID,
			"processInstanceKey": key,
		})
		return
	}

	d.logger.Warn("failed to start lead intake process", map[string]interface{}{
		"applicationId": app.ID,
		"processId":     d.processID,
		"error":         err.Error(),
	})
	if d.fallback != nil {
		d.fallback.Dispatch(ctx, app)
	}
}
