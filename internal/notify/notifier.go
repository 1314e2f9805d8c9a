// Package notify tells the sales team about new applications and mirrors them
// into the CRM. Every attempt is recorded in the application audit log.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	awsclients "mortgage-funnel/internal/common/aws"
	"mortgage-funnel/internal/common/config"
	"mortgage-funnel/internal/common/errors"
	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
	"mortgage-funnel/internal/common/zoho"
	"mortgage-funnel/internal/models"
)

// Auditor appends audit entries to a stored application.
type Auditor interface {
	AppendAudit(ctx context.Context, id string, entry models.AuditEntry) error
}

// CRM is the slice of the Zoho client used for lead sync.
type CRM interface {
	IsConfigured() bool
	SearchLeads(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
	UpdateLead(ctx context.Context, leadID string, lead *zoho.Lead) error
}

type Config struct {
	Enabled    bool
	FromEmail  string
	ToEmail    string
	SMSEnabled bool
	SMSNumber  string
	CRMEnabled bool
}

// ConfigFrom reads the landing notification settings.
func ConfigFrom(cfg config.LandingConfig) Config {
	n := cfg.Notifications
	return Config{
		Enabled:    n.Enabled,
		FromEmail:  n.FromEmail,
		ToEmail:    n.ToEmail,
		SMSEnabled: n.SMSEnabled,
		SMSNumber:  n.SMSNumber,
		CRMEnabled: n.CRMEnabled,
	}
}

type Notifier struct {
	cfg    Config
	ses    awsclients.SESService
	sns    awsclients.SNSService
	crm    CRM
	audit  Auditor
	logger logger.Logger
	now    func() time.Time
}

// NewNotifier accepts nil clients; the matching channel is then reported as
// disabled.
func NewNotifier(cfg Config, sesClient awsclients.SESService, snsClient awsclients.SNSService, crm CRM, audit Auditor, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		crm:    crm,
		audit:  audit,
		logger: logger.Component(log, "lead-notifier"),
		now:    time.Now,
	}
}

func (n *Notifier) result(channel, status string, err error) *models.NotificationResult {
	r := &models.NotificationResult{
		NotificationID: uuid.New().String(),
		Channel:        channel,
		Status:         status,
		SentAt:         n.now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		r.Error = err.Error()
	}
	metrics.NotificationsSent.WithLabelValues(channel, status).Inc()
	return r
}

func (n *Notifier) record(ctx context.Context, app *models.Application, action string, details map[string]interface{}) {
	if n.audit == nil {
		return
	}
	err := n.audit.AppendAudit(ctx, app.ID, models.AuditEntry{
		Action:    action,
		Actor:     "system",
		Details:   details,
		Timestamp: n.now(),
	})
	if err != nil {
		n.logger.Error("failed to log notification outcome", map[string]interface{}{
			"applicationId": app.ID,
			"action":        action,
			"error":         err.Error(),
		})
	}
}

// NotifyTeam emails the team and, for high priority leads, sends an SMS
// alert. SMS failures are audited but do not fail the notification.
func (n *Notifier) NotifyTeam(ctx context.Context, app *models.Application) (*models.NotificationResult, error) {
	if !n.cfg.Enabled || n.ses == nil || n.cfg.ToEmail == "" {
		return n.result(models.ChannelEmail, models.NotificationDisabled, nil), nil
	}

	priority := EmailPriority(app)
	if err := n.sendEmail(ctx, app, priority); err != nil {
		n.logger.Error("email notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		n.record(ctx, app, models.AuditNotificationFailed, map[string]interface{}{
			"type":  models.ChannelEmail,
			"error": err.Error(),
		})
		return n.result(models.ChannelEmail, models.NotificationFailed, err),
			errors.NewNotificationSendFailedError(models.ChannelEmail, err)
	}

	n.record(ctx, app, models.AuditNotificationSent, map[string]interface{}{
		"type":      models.ChannelEmail,
		"recipient": n.cfg.ToEmail,
		"priority":  priority,
	})
	n.logger.Info("email notification sent", map[string]interface{}{
		"applicationId": app.ID,
		"priority":      priority,
	})

	if priority == PriorityHigh {
		n.alertSMS(ctx, app)
	}
	return n.result(models.ChannelEmail, models.NotificationSent, nil), nil
}

func (n *Notifier) sendEmail(ctx context.Context, app *models.Application, priority string) error {
	body, err := RenderEmail(app)
	if err != nil {
		return err
	}
	subject := Subject(app)
	if priority == PriorityHigh {
		subject = "[HIGH PRIORITY] " + subject
	}

	_, err = n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.cfg.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.FromEmail),
	})
	return err
}

func (n *Notifier) alertSMS(ctx context.Context, app *models.Application) {
	if !n.cfg.SMSEnabled || n.sns == nil || n.cfg.SMSNumber == "" {
		return
	}
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.cfg.SMSNumber),
		Message:     aws.String(SMSText(app)),
	})
	if err != nil {
		n.logger.Error("SMS alert failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		n.record(ctx, app, models.AuditNotificationFailed, map[string]interface{}{
			"type":  models.ChannelSMS,
			"error": err.Error(),
		})
		n.result(models.ChannelSMS, models.NotificationFailed, err)
		return
	}
	n.record(ctx, app, models.AuditNotificationSent, map[string]interface{}{
		"type":      models.ChannelSMS,
		"recipient": n.cfg.SMSNumber,
		"priority":  PriorityHigh,
	})
	n.result(models.ChannelSMS, models.NotificationSent, nil)
}

// Lead maps an application onto a Zoho lead.
func Lead(app *models.Application) *zoho.Lead {
	first, last := splitName(app.FullName)
	budget := app.BudgetRange
	if budget == "" {
		budget = app.InvestmentBudget
	}
	description := fmt.Sprintf("%s application, contact by %s, %s",
		Label("loanType", app.LoanType), Label("contactMethod", app.ContactMethod),
		Label("bestTimeToCall", app.BestTimeToCall))

	return &zoho.Lead{
		Email:       app.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       app.PhoneNumber,
		Source:      app.Source,
		Status:      app.Status,
		Description: description,
		LoanType:    Label("loanType", app.LoanType),
		Budget:      budget,
		Currency:    app.CurrencyDisplayed,
		Reference:   app.TrackingNumber,
	}
}

// splitName puts everything after the first word into the last name. Zoho
// requires a last name, so a single word goes there.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", "Unknown"
	case 1:
		return "", parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// SyncCRM creates the lead, or updates it when one with the same email exists.
func (n *Notifier) SyncCRM(ctx context.Context, app *models.Application) (*models.NotificationResult, error) {
	if !n.cfg.CRMEnabled || n.crm == nil || !n.crm.IsConfigured() {
		return n.result(models.ChannelCRM, models.NotificationDisabled, nil), nil
	}

	leadID, err := n.upsertLead(ctx, app)
	if err != nil {
		n.logger.Error("CRM sync failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		n.record(ctx, app, models.AuditNotificationFailed, map[string]interface{}{
			"type":  models.ChannelCRM,
			"error": err.Error(),
		})
		return n.result(models.ChannelCRM, models.NotificationFailed, err), errors.NewCRMAPIError(err)
	}

	n.record(ctx, app, models.AuditNotificationSent, map[string]interface{}{
		"type":   models.ChannelCRM,
		"leadId": leadID,
	})
	res := n.result(models.ChannelCRM, models.NotificationSent, nil)
	res.NotificationID = leadID
	return res, nil
}

func (n *Notifier) upsertLead(ctx context.Context, app *models.Application) (string, error) {
	lead := Lead(app)
	existing, err := n.crm.SearchLeads(ctx, app.Email)
	if err != nil {
		return "", fmt.Errorf("search leads: %w", err)
	}
	if len(existing) > 0 && existing[0].ID != "" {
		if err := n.crm.UpdateLead(ctx, existing[0].ID, lead); err != nil {
			return "", fmt.Errorf("update lead: %w", err)
		}
		return existing[0].ID, nil
	}
	return n.crm.CreateLead(ctx, lead)
}
