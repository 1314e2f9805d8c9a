package notify

// labels maps stored enum ids to the wording used in lead emails.
var labels = map[string]map[string]string{
	"loanType": {
		"new-purchase": "New Purchase",
		"refinance":    "Refinance",
		"investment":   "Investment Property",
	},
	"propertyStatus": {
		"browsing": "Just browsing",
		"looking":  "Actively searching",
		"found":    "Found my home",
	},
	"propertyType": {
		"villa":     "Villa",
		"apartment": "Apartment",
		"townhouse": "Townhouse",
		"not-sure":  "Not sure yet",
	},
	"budgetRange": {
		"under-1m": "Under AED 1M",
		"1m-2m":    "AED 1M - 2M",
		"2m-5m":    "AED 2M - 5M",
		"above-5m": "Above AED 5M",
	},
	"downPayment": {
		"10-percent":      "10%",
		"20-25-percent":   "20-25%",
		"30-plus-percent": "30% or more",
		"need-guidance":   "Need guidance",
	},
	"monthlyIncome": {
		"under-15k": "Under AED 15K",
		"15k-30k":   "AED 15K - 30K",
		"30k-50k":   "AED 30K - 50K",
		"above-50k": "Above AED 50K",
	},
	"employmentStatus": {
		"uae-resident-employee": "UAE Resident Employee",
		"uae-national":          "UAE National",
		"expat-work-visa":       "Expat on work visa",
		"self-employed":         "Self-employed",
	},
	"contactMethod": {
		"email":    "Email",
		"phone":    "Phone Call",
		"whatsapp": "WhatsApp",
		"both":     "Email & Phone",
	},
	"bestTimeToCall": {
		"morning":   "Morning (9AM - 12PM)",
		"afternoon": "Afternoon (12PM - 5PM)",
		"evening":   "Evening (5PM - 8PM)",
		"anytime":   "Anytime",
	},
	"investmentGoal": {
		"rental-income":        "Rental income",
		"capital-appreciation": "Capital appreciation",
		"both-returns":         "Both rental and appreciation",
		"short-term-flip":      "Short-term flip",
	},
	"investorExperience": {
		"first-investment":      "First investment property",
		"own-1-2":               "Own 1-2 properties",
		"own-3-plus":            "Own 3+ properties",
		"professional-investor": "Professional investor",
	},
	"investmentHorizon": {
		"short-term": "Short-term (1-3 years)",
		"mid-term":   "Mid-term (3-7 years)",
		"long-term":  "Long-term (7+ years)",
	},
	"investmentIncomeSource": {
		"employment-salary":  "Employment salary",
		"business-income":    "Business income",
		"investment-returns": "Investment returns",
		"multiple-sources":   "Multiple sources",
	},
	"investmentFinancingStructure": {
		"traditional-mortgage": "Traditional mortgage",
		"islamic-financing":    "Islamic financing (Sharia)",
		"developer-financing":  "Developer financing",
		"need-advice":          "Need advice",
	},
	"investmentDownPayment": {
		"25-percent":             "25%",
		"30-40-percent":          "30-40%",
		"50-plus-percent":        "50% or more",
		"need-financing-options": "Need financing options",
	},
}

// Label returns the display wording for a stored value, or the value itself
// when the key or value is unknown.
func Label(key, value string) string {
	if l, ok := labels[key][value]; ok {
		return l
	}
	return value
}
