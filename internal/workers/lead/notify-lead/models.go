package notifylead

import "mortgage-funnel/internal/models"

// Input is the process variable set started by the lead dispatcher.
type Input = models.LeadNotification

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"notificationStatus"` // "sent", "failed", "disabled"
	SentAt         string `json:"notificationSentAt"` // ISO 8601
	Priority       string `json:"priority"`
}
