package landing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"mortgage-funnel/internal/common/validation"
	"mortgage-funnel/internal/models"
	"mortgage-funnel/internal/wizard"
)

const (
	emailPattern = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	phonePattern = `^[\+]?[0-9\s\-\(\)]{10,15}$`

	maxNameLength  = 100
	maxEmailLength = 255
	keyMarketing   = "marketingConsent"
)

var whitespace = regexp.MustCompile(`\s+`)

// submissionSchema is derived from the wizard's field table so both sides
// accept the same values.
var submissionSchema = buildSchema()

func buildSchema() validation.Schema {
	props := map[string]interface{}{
		keyMarketing: map[string]interface{}{"type": "boolean"},
	}
	var required []interface{}

	for _, f := range wizard.Fields {
		if f.Send == "" {
			continue
		}
		var prop map[string]interface{}
		switch f.Kind {
		case wizard.KindBool:
			prop = map[string]interface{}{"type": "boolean"}
		case wizard.KindEnum:
			prop = validation.StringEnum(f.Enum...)
		default:
			prop = map[string]interface{}{"type": "string"}
		}
		switch f.Send {
		case wizard.KeyEmail:
			prop["pattern"] = emailPattern
			prop["maxLength"] = maxEmailLength
		case wizard.KeyPhoneNumber:
			prop["pattern"] = phonePattern
		}
		if f.Required {
			required = append(required, f.Send)
			if f.Kind != wizard.KindBool {
				prop["minLength"] = 1
			}
		}
		props[f.Send] = prop
	}

	return validation.Schema{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func isRequired(key string) bool {
	for _, k := range wizard.RequiredKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// prune drops null values and, for optional keys, empty strings. An empty
// optional answer is treated as not given.
func prune(body map[string]interface{}) map[string]interface{} {
	doc := make(map[string]interface{}, len(body))
	for k, v := range body {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" && !isRequired(k) {
			continue
		}
		doc[k] = v
	}
	return doc
}

// Validate checks a submission body and returns the sanitized record. The
// returned messages are sorted.
func Validate(body map[string]interface{}) (*models.Application, []string, error) {
	doc := prune(body)
	result, err := validation.Validate(submissionSchema, doc)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		seen := map[string]bool{}
		var messages []string
		for _, ve := range result.Errors {
			msg := messageFor(ve)
			if !seen[msg] {
				seen[msg] = true
				messages = append(messages, msg)
			}
		}
		sort.Strings(messages)
		return nil, messages, nil
	}
	return sanitize(doc), nil, nil
}

func messageFor(ve validation.ValidationError) string {
	switch ve.Code {
	case "required", "string_gte":
		return ve.Field + " is required"
	case "string_lte":
		return ve.Field + " is too long"
	case "enum":
		return "Invalid value for " + ve.Field
	case "pattern":
		switch ve.Field {
		case wizard.KeyEmail:
			return "Invalid email format"
		case wizard.KeyPhoneNumber:
			return "Invalid phone number format"
		}
	case "invalid_type":
		if ve.Field == wizard.KeyIsUAEResident || ve.Field == keyMarketing {
			return ve.Field + " must be a boolean value"
		}
		return ve.Field + " must be a string"
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

func sanitize(doc map[string]interface{}) *models.Application {
	str := func(key string) string {
		s, _ := doc[key].(string)
		return s
	}

	name := strings.TrimSpace(str(wizard.KeyFullName))
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	resident, _ := doc[wizard.KeyIsUAEResident].(bool)
	marketing, _ := doc[keyMarketing].(bool)

	return &models.Application{
		LoanType:        str(wizard.KeyLoanType),
		IsUAEResident:   resident,
		ResidencyStatus: str(wizard.KeyResidencyStatus),

		PropertyStatus:   str(wizard.KeyPropertyStatus),
		PropertyType:     str(wizard.KeyPropertyType),
		BudgetRange:      str(wizard.KeyBudgetRange),
		DownPayment:      str(wizard.KeyDownPayment),
		MonthlyIncome:    str(wizard.KeyMonthlyIncome),
		EmploymentStatus: str(wizard.KeyEmploymentStatus),

		RefinanceReason:  str(wizard.KeyRefinanceReason),
		CurrentRate:      str(wizard.KeyCurrentRate),
		RemainingBalance: str(wizard.KeyRemainingBalance),
		PropertyValue:    str(wizard.KeyPropertyValue),

		InvestmentGoal:               str(wizard.KeyInvestmentGoal),
		InvestorExperience:           str(wizard.KeyInvestorExperience),
		InvestmentBudget:             str(wizard.KeyInvestmentBudget),
		InvestmentHorizon:            str(wizard.KeyInvestmentHorizon),
		InvestmentIncomeSource:       str(wizard.KeyInvestmentIncomeSource),
		InvestmentFinancingStructure: str(wizard.KeyInvestmentFinancingStructure),
		InvestmentDownPayment:        str(wizard.KeyInvestmentDownPayment),

		FullName:       name,
		Email:          strings.ToLower(strings.TrimSpace(str(wizard.KeyEmail))),
		PhoneNumber:    strings.TrimSpace(whitespace.ReplaceAllString(str(wizard.KeyPhoneNumber), " ")),
		ContactMethod:  str(wizard.KeyContactMethod),
		BestTimeToCall: str(wizard.KeyBestTimeToCall),

		MarketingConsent: marketing,
	}
}
