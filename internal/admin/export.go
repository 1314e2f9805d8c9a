package admin

import (
	"encoding/csv"
	"io"
	"time"

	"mortgage-funnel/internal/models"
)

var csvHeader = []string{
	"ID", "Full Name", "Email", "Phone Number", "Loan Type", "Budget Range",
	"Property Type", "Monthly Income", "Employment Status", "Status", "Created At", "Last Updated",
}

func csvDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// WriteCSV writes one row per application. Budget falls back to the
// investment budget.
func WriteCSV(w io.Writer, apps []models.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, app := range apps {
		budget := app.BudgetRange
		if budget == "" {
			budget = app.InvestmentBudget
		}
		status := app.Status
		if status == "" {
			status = models.StatusNewLead
		}
		row := []string{
			app.ID, app.FullName, app.Email, app.PhoneNumber, app.LoanType, budget,
			app.PropertyType, app.MonthlyIncome, app.EmploymentStatus, status,
			csvDate(app.CreatedAt), csvDate(app.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
