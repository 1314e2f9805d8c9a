// internal/models/application.go
package models

import "time"

// Application is a persisted landing application. Branch-specific fields are
// empty strings when the applicant's loan type does not use them.
type Application struct {
	ID             string `json:"id" db:"id"`
	TrackingNumber string `json:"trackingNumber" db:"tracking_number"`

	LoanType        string `json:"loanType" db:"loan_type"`
	IsUAEResident   bool   `json:"isUAEResident" db:"is_uae_resident"`
	ResidencyStatus string `json:"residencyStatus" db:"residency_status"`

	PropertyStatus   string `json:"propertyStatus,omitempty" db:"property_status"`
	PropertyType     string `json:"propertyType,omitempty" db:"property_type"`
	BudgetRange      string `json:"budgetRange,omitempty" db:"budget_range"`
	DownPayment      string `json:"downPayment,omitempty" db:"down_payment"`
	MonthlyIncome    string `json:"monthlyIncome,omitempty" db:"monthly_income"`
	EmploymentStatus string `json:"employmentStatus,omitempty" db:"employment_status"`

	RefinanceReason  string `json:"refinanceReason,omitempty" db:"refinance_reason"`
	CurrentRate      string `json:"currentRate,omitempty" db:"current_rate"`
	RemainingBalance string `json:"remainingBalance,omitempty" db:"remaining_balance"`
	PropertyValue    string `json:"propertyValue,omitempty" db:"property_value"`

	InvestmentGoal               string `json:"investmentGoal,omitempty" db:"investment_goal"`
	InvestorExperience           string `json:"investorExperience,omitempty" db:"investor_experience"`
	InvestmentBudget             string `json:"investmentBudget,omitempty" db:"investment_budget"`
	InvestmentHorizon            string `json:"investmentHorizon,omitempty" db:"investment_horizon"`
	InvestmentIncomeSource       string `json:"investmentIncomeSource,omitempty" db:"investment_income_source"`
	InvestmentFinancingStructure string `json:"investmentFinancingStructure,omitempty" db:"investment_financing_structure"`
	InvestmentDownPayment        string `json:"investmentDownPayment,omitempty" db:"investment_down_payment"`

	FullName       string `json:"fullName" db:"full_name"`
	Email          string `json:"email" db:"email"`
	PhoneNumber    string `json:"phoneNumber" db:"phone_number"`
	ContactMethod  string `json:"contactMethod" db:"contact_method"`
	BestTimeToCall string `json:"bestTimeToCall" db:"best_time_to_call"`

	Status            string `json:"status" db:"status"`
	Priority          string `json:"priority" db:"priority"`
	Source            string `json:"source" db:"source"`
	CurrencyDisplayed string `json:"currencyDisplayed" db:"currency_displayed"`

	IPAddress             string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent             string `json:"userAgent,omitempty" db:"user_agent"`
	SessionID             string `json:"sessionId,omitempty" db:"session_id"`
	Referrer              string `json:"referrer,omitempty" db:"referrer"`
	DataProcessingConsent bool   `json:"dataProcessingConsent" db:"data_processing_consent"`
	MarketingConsent      bool   `json:"marketingConsent" db:"marketing_consent"`

	FollowupDate *time.Time `json:"followupDate,omitempty" db:"followup_date"`
	SubmittedAt  time.Time  `json:"submittedAt" db:"submitted_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`

	Notes    []Note       `json:"notes,omitempty" db:"-"`
	AuditLog []AuditEntry `json:"auditLog,omitempty" db:"-"`
}

// Application statuses. Any status may move to any other.
const (
	StatusNewLead      = "New Lead"
	StatusContacted    = "Contacted"
	StatusQualified    = "Qualified"
	StatusProposalSent = "Proposal Sent"
	StatusApproved     = "Approved"
	StatusRejected     = "Rejected"
	StatusArchived     = "Archived"
)

// Statuses lists every status in dashboard order.
var Statuses = []string{
	StatusNewLead, StatusContacted, StatusQualified, StatusProposalSent,
	StatusApproved, StatusRejected, StatusArchived,
}

func IsValidStatus(s string) bool {
	for _, status := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const SourceLandingSecure = "Landing Page - Secure"

// Audit actions.
const (
	AuditCreated            = "created"
	AuditViewed             = "viewed"
	AuditUpdated            = "updated"
	AuditExported           = "exported"
	AuditDeleted            = "deleted"
	AuditNoteAdded          = "note_added"
	AuditFollowupSet        = "followup_set"
	AuditStatusUpdate       = "status_update"
	AuditBulkStatusUpdate   = "bulk_status_update"
	AuditNotificationSent   = "notification_sent"
	AuditNotificationFailed = "notification_failed"
)

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	ID            int64                  `json:"-" db:"id"`
	ApplicationID string                 `json:"-" db:"application_id"`
	Action        string                 `json:"action" db:"action"`
	Actor         string                 `json:"performedBy" db:"actor"`
	Details       map[string]interface{} `json:"details,omitempty" db:"-"`
	Timestamp     time.Time              `json:"timestamp" db:"created_at"`
}

// Note is an admin note attached to an application.
type Note struct {
	ID            int64     `json:"-" db:"id"`
	ApplicationID string    `json:"-" db:"application_id"`
	Content       string    `json:"content" db:"content"`
	AddedBy       string    `json:"addedBy" db:"added_by"`
	Timestamp     time.Time `json:"timestamp" db:"created_at"`
}
