package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"mortgage-funnel/internal/models"
)

// Email priorities.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// EmailPriority is high for the top budget band.
func EmailPriority(app *models.Application) string {
	if app.BudgetRange == "above-5m" {
		return PriorityHigh
	}
	return PriorityNormal
}

// Subject is the team email subject line.
func Subject(app *models.Application) string {
	return fmt.Sprintf("🏠 SECURE Landing Application - %s - %s [%s]",
		strings.ToUpper(app.LoanType), app.FullName, app.CurrencyDisplayed)
}

type field struct {
	Label string
	Value string
}

type emailView struct {
	App       *models.Application
	Summary   []field
	Property  []field
	Financial []field
	Contact   []field
	Technical []field
}

var emailTemplate = template.Must(template.New("lead").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="background: #000; color: #fff; padding: 20px; text-align: center;">
<h2>New Landing Page Application</h2>
<p>Application ID: {{.App.ID}}</p>
<p>Tracking Number: {{.App.TrackingNumber}}</p>
</div>
{{define "section"}}<div style="margin-bottom: 30px;">{{range .}}<div><strong>{{.Label}}:</strong> {{.Value}}</div>
{{end}}</div>{{end}}
<h3>Quick Summary</h3>
{{template "section" .Summary}}
<h3>Property Details</h3>
{{template "section" .Property}}
<h3>Financial Information</h3>
{{template "section" .Financial}}
<h3>Contact Preferences</h3>
{{template "section" .Contact}}
<h3>Technical Details</h3>
{{template "section" .Technical}}
<div style="background: #f8f9fa; padding: 15px; text-align: center; color: #666;">
<p>This application was submitted through the Neon Mortgage landing page.</p>
<p>Please respond to the customer within 24 hours for best conversion rates.</p>
</div>
</body>
</html>
`))

func labelled(values map[string]string, keys ...[2]string) []field {
	out := make([]field, 0, len(keys))
	for _, k := range keys {
		out = append(out, field{Label: k[1], Value: Label(k[0], values[k[0]])})
	}
	return out
}

// RenderEmail builds the HTML body sent to the team.
func RenderEmail(app *models.Application) (string, error) {
	values := map[string]string{
		"loanType":                     app.LoanType,
		"propertyStatus":               app.PropertyStatus,
		"propertyType":                 app.PropertyType,
		"budgetRange":                  app.BudgetRange,
		"downPayment":                  app.DownPayment,
		"monthlyIncome":                app.MonthlyIncome,
		"employmentStatus":             app.EmploymentStatus,
		"investmentGoal":               app.InvestmentGoal,
		"investorExperience":           app.InvestorExperience,
		"investmentHorizon":            app.InvestmentHorizon,
		"investmentIncomeSource":       app.InvestmentIncomeSource,
		"investmentFinancingStructure": app.InvestmentFinancingStructure,
		"investmentDownPayment":        app.InvestmentDownPayment,
		"refinanceReason":              app.RefinanceReason,
		"currentRate":                  app.CurrentRate,
		"remainingBalance":             app.RemainingBalance,
		"propertyValue":                app.PropertyValue,
		"contactMethod":                app.ContactMethod,
		"bestTimeToCall":               app.BestTimeToCall,
	}

	view := emailView{App: app}
	view.Summary = append([]field{
		{"Name", app.FullName},
		{"Email", app.Email},
		{"Phone", app.PhoneNumber},
	}, labelled(values, [2]string{"loanType", "Loan Type"}, [2]string{"budgetRange", "Budget Range"})...)
	view.Property = labelled(values,
		[2]string{"propertyStatus", "Property Status"},
		[2]string{"propertyType", "Property Type"},
		[2]string{"budgetRange", "Budget Range"},
		[2]string{"downPayment", "Down Payment"},
	)
	view.Financial = labelled(values,
		[2]string{"monthlyIncome", "Monthly Income"},
		[2]string{"employmentStatus", "Employment Status"},
	)
	view.Contact = append([]field{
		{"Full Name", app.FullName},
		{"Email", app.Email},
		{"Phone Number", app.PhoneNumber},
	}, labelled(values,
		[2]string{"contactMethod", "Preferred Contact Method"},
		[2]string{"bestTimeToCall", "Best Time to Call"},
	)...)

	switch app.LoanType {
	case "investment":
		view.Financial = append(view.Financial, labelled(values,
			[2]string{"investmentGoal", "Investment Goal"},
			[2]string{"investorExperience", "Investor Experience"},
			[2]string{"investmentHorizon", "Investment Horizon"},
			[2]string{"investmentIncomeSource", "Income Source"},
			[2]string{"investmentFinancingStructure", "Financing Structure"},
			[2]string{"investmentDownPayment", "Investment Down Payment"},
		)...)
	case "refinance":
		view.Financial = append(view.Financial, labelled(values,
			[2]string{"refinanceReason", "Refinance Reason"},
			[2]string{"currentRate", "Current Rate"},
			[2]string{"remainingBalance", "Remaining Balance"},
			[2]string{"propertyValue", "Property Value"},
		)...)
	}

	ip := app.IPAddress
	if ip == "" {
		ip = "Not available"
	}
	view.Technical = []field{
		{"Submission Date", app.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST")},
		{"Source", app.Source},
		{"Status", app.Status},
		{"Currency Displayed", app.CurrencyDisplayed},
		{"IP Address", ip},
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render lead email: %w", err)
	}
	return buf.String(), nil
}

// SMSText is the short alert sent for high priority leads.
func SMSText(app *models.Application) string {
	return fmt.Sprintf("High priority %s lead: %s, %s, %s. Ref %s",
		Label("loanType", app.LoanType), app.FullName, app.PhoneNumber,
		Label("budgetRange", app.BudgetRange), app.TrackingNumber)
}
