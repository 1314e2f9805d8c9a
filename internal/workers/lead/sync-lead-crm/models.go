package syncleadcrm

import "mortgage-funnel/internal/models"

type Input = models.LeadNotification

type Output struct {
	LeadID   string `json:"crmLeadId,omitempty"`
	Status   string `json:"crmStatus"` // "sent", "failed", "disabled"
	SyncedAt string `json:"crmSyncedAt"`
}
