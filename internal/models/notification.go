// internal/models/notification.go
package models

// LeadNotification is the payload handed to the lead intake process and the
// notify/CRM workers after an application is stored.
type LeadNotification struct {
	ApplicationID  string `json:"applicationId"`
	TrackingNumber string `json:"trackingNumber"`
	Priority       string `json:"priority"`
	Currency       string `json:"currency"`
}

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelCRM   = "crm"
)

// Notification statuses.
const (
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)

// NotificationResult reports the outcome of one notification attempt.
type NotificationResult struct {
	NotificationID string `json:"notificationId"`
	Channel        string `json:"channel"`
	Status         string `json:"status"`
	SentAt         string `json:"sentAt"`
	Error          string `json:"error,omitempty"`
}
