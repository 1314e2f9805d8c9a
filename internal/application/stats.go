package application

import (
	"context"
	"fmt"
	"time"

	"mortgage-funnel/internal/models"
)

// Stats is the dashboard summary.
type Stats struct {
	ByStatus           map[string]int `json:"-"`
	Total              int            `json:"totalApplications"`
	NewLead            int            `json:"newLeadApplications"`
	Contacted          int            `json:"contactedApplications"`
	Qualified          int            `json:"qualifiedApplications"`
	Approved           int            `json:"approvedApplications"`
	Rejected           int            `json:"rejectedApplications"`
	ProposalSent       int            `json:"proposalSentApplications"`
	BudgetRanges       []BudgetCount  `json:"budgetRangeStats"`
	RecentApplications int            `json:"recentApplications"`
	MonthlyTrend       []MonthCount   `json:"monthlyTrend"`
}

type BudgetCount struct {
	BudgetRange string `json:"_id" db:"budget_range"`
	Count       int    `json:"count" db:"count"`
}

type MonthCount struct {
	Year  int `json:"year" db:"year"`
	Month int `json:"month" db:"month"`
	Count int `json:"count" db:"count"`
}

type statusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

const (
	recentWindow = 30 * 24 * time.Hour
	trendMonths  = 6
)

// Stats computes the dashboard summary relative to now.
func (r *Repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	rows := []statusCount{}
	if err := r.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM landing_applications GROUP BY status"); err != nil {
		return nil, fmt.Errorf("%w: status stats: %v", ErrQueryFailed, err)
	}

	s := &Stats{ByStatus: make(map[string]int, len(models.Statuses))}
	for _, row := range rows {
		s.ByStatus[row.Status] = row.Count
		s.Total += row.Count
	}
	s.NewLead = s.ByStatus[models.StatusNewLead]
	s.Contacted = s.ByStatus[models.StatusContacted]
	s.Qualified = s.ByStatus[models.StatusQualified]
	s.Approved = s.ByStatus[models.StatusApproved]
	s.Rejected = s.ByStatus[models.StatusRejected]
	s.ProposalSent = s.ByStatus[models.StatusProposalSent]

	s.BudgetRanges = []BudgetCount{}
	if err := r.db.SelectContext(ctx, &s.BudgetRanges,
		`SELECT budget_range, COUNT(*) AS count FROM landing_applications
		GROUP BY budget_range ORDER BY count DESC, budget_range`); err != nil {
		return nil, fmt.Errorf("%w: budget stats: %v", ErrQueryFailed, err)
	}

	if err := r.db.GetContext(ctx, &s.RecentApplications,
		"SELECT COUNT(*) FROM landing_applications WHERE created_at >= $1",
		now.Add(-recentWindow)); err != nil {
		return nil, fmt.Errorf("%w: recent stats: %v", ErrQueryFailed, err)
	}

	s.MonthlyTrend = []MonthCount{}
	if err := r.db.SelectContext(ctx, &s.MonthlyTrend,
		`SELECT EXTRACT(YEAR FROM created_at)::int AS year, EXTRACT(MONTH FROM created_at)::int AS month,
		COUNT(*) AS count FROM landing_applications WHERE created_at >= $1
		GROUP BY 1, 2 ORDER BY 1, 2`,
		now.AddDate(0, -trendMonths, 0)); err != nil {
		return nil, fmt.Errorf("%w: monthly trend: %v", ErrQueryFailed, err)
	}

	return s, nil
}
