package wizard

import (
	"context"
	"fmt"
	"strconv"
)

// CommonAnswers are asked on every branch.
type CommonAnswers struct {
	LoanType        Branch `json:"loanType,omitempty"`
	IsUAEResident   *bool  `json:"isUAEResident,omitempty"`
	ResidencyStatus string `json:"residencyStatus,omitempty"`
}

type PurchaseAnswers struct {
	PropertyStatus   string `json:"propertyStatus,omitempty"`
	PropertyType     string `json:"propertyType,omitempty"`
	BudgetRange      string `json:"budgetRange,omitempty"`
	DownPayment      string `json:"downPayment,omitempty"`
	MonthlyIncome    string `json:"monthlyIncome,omitempty"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
}

type RefinanceAnswers struct {
	RefinanceReason        string `json:"refinanceReason,omitempty"`
	CurrentRate            string `json:"currentRate,omitempty"`
	RemainingBalance       string `json:"remainingBalance,omitempty"`
	PropertyValue          string `json:"propertyValue,omitempty"`
	MonthlyIncomeRefinance string `json:"monthlyIncomeRefinance,omitempty"`
}

// InvestmentAnswers also carries the older budget keys that earlier
// versions of the flow wrote, read only as fallbacks.
type InvestmentAnswers struct {
	InvestmentGoal               string `json:"investmentGoal,omitempty"`
	InvestorExperience           string `json:"investorExperience,omitempty"`
	InvestmentBudget             string `json:"investmentBudget,omitempty"`
	InvestmentBudgetRange        string `json:"investmentBudgetRange,omitempty"`
	LegacyBudgetRange            string `json:"budgetRange,omitempty"`
	InvestmentIncomeSource       string `json:"investmentIncomeSource,omitempty"`
	InvestmentFinancingStructure string `json:"investmentFinancingStructure,omitempty"`
	InvestmentHorizon            string `json:"investmentHorizon,omitempty"`
	PropertyType                 string `json:"propertyType,omitempty"`
	InvestmentDownPayment        string `json:"investmentDownPayment,omitempty"`
}

type ContactDetails struct {
	FullName       string `json:"fullName,omitempty"`
	Email          string `json:"email,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	ContactMethod  string `json:"contactMethod,omitempty"`
	BestTimeToCall string `json:"bestTimeToCall,omitempty"`
}

// Answers is the typed answer set. Only the struct of the chosen branch is
// populated.
type Answers struct {
	Common        CommonAnswers      `json:"common"`
	Purchase      *PurchaseAnswers   `json:"purchase,omitempty"`
	Refinance     *RefinanceAnswers  `json:"refinance,omitempty"`
	Investment    *InvestmentAnswers `json:"investment,omitempty"`
	Contact       ContactDetails     `json:"contact"`
	ApplicationID string             `json:"applicationId,omitempty"`
}

// FieldError is one rejected answer.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// Branch returns the chosen loan type.
func (a *Answers) Branch() Branch {
	return a.Common.LoanType
}

// SetBranch selects the loan type and allocates the matching answer struct.
func (a *Answers) SetBranch(b Branch) {
	a.Common.LoanType = b
	a.Purchase, a.Refinance, a.Investment = nil, nil, nil
	switch b {
	case BranchPurchase:
		a.Purchase = &PurchaseAnswers{}
	case BranchRefinance:
		a.Refinance = &RefinanceAnswers{}
	case BranchInvestment:
		a.Investment = &InvestmentAnswers{}
	}
}

// bindings maps every string-valued key of the current branch onto its field.
func (a *Answers) bindings() map[string]*string {
	m := map[string]*string{
		KeyResidencyStatus: &a.Common.ResidencyStatus,
		KeyFullName:        &a.Contact.FullName,
		KeyEmail:           &a.Contact.Email,
		KeyPhoneNumber:     &a.Contact.PhoneNumber,
		KeyContactMethod:   &a.Contact.ContactMethod,
		KeyBestTimeToCall:  &a.Contact.BestTimeToCall,
		KeyApplicationID:   &a.ApplicationID,
	}
	if p := a.Purchase; p != nil {
		m[KeyPropertyStatus] = &p.PropertyStatus
		m[KeyPropertyType] = &p.PropertyType
		m[KeyBudgetRange] = &p.BudgetRange
		m[KeyDownPayment] = &p.DownPayment
		m[KeyMonthlyIncome] = &p.MonthlyIncome
		m[KeyEmploymentStatus] = &p.EmploymentStatus
	}
	if r := a.Refinance; r != nil {
		m[KeyRefinanceReason] = &r.RefinanceReason
		m[KeyCurrentRate] = &r.CurrentRate
		m[KeyRemainingBalance] = &r.RemainingBalance
		m[KeyPropertyValue] = &r.PropertyValue
		m[KeyMonthlyIncomeRefinance] = &r.MonthlyIncomeRefinance
	}
	if inv := a.Investment; inv != nil {
		m[KeyInvestmentGoal] = &inv.InvestmentGoal
		m[KeyInvestorExperience] = &inv.InvestorExperience
		m[KeyInvestmentBudget] = &inv.InvestmentBudget
		m[KeyInvestmentBudgetRange] = &inv.InvestmentBudgetRange
		m[KeyBudgetRange] = &inv.LegacyBudgetRange
		m[KeyInvestmentIncomeSource] = &inv.InvestmentIncomeSource
		m[KeyInvestmentFinancingStructure] = &inv.InvestmentFinancingStructure
		m[KeyInvestmentHorizon] = &inv.InvestmentHorizon
		m[KeyPropertyType] = &inv.PropertyType
		m[KeyInvestmentDownPayment] = &inv.InvestmentDownPayment
	}
	return m
}

// Set assigns one stored value. Keys outside the current branch are
// rejected with ErrUnexpectedKey.
func (a *Answers) Set(key, value string) error {
	switch key {
	case KeyLoanType:
		b, err := ParseBranch(value)
		if err != nil {
			return err
		}
		if a.Common.LoanType != b {
			a.SetBranch(b)
		}
		return nil
	case KeyIsUAEResident:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidAnswer, key)
		}
		a.Common.IsUAEResident = &v
		return nil
	}
	dst, ok := a.bindings()[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedKey, key)
	}
	*dst = value
	return nil
}

// Values flattens the answers into stored form. Empty values are omitted.
func (a *Answers) Values() map[string]string {
	out := make(map[string]string)
	if a.Common.LoanType != BranchNone {
		out[KeyLoanType] = string(a.Common.LoanType)
	}
	if a.Common.IsUAEResident != nil {
		out[KeyIsUAEResident] = strconv.FormatBool(*a.Common.IsUAEResident)
	}
	for key, ptr := range a.bindings() {
		if *ptr != "" {
			out[key] = *ptr
		}
	}
	return out
}

// LoadAnswers reads every schema key from store. Values that do not fit the
// branch are skipped.
func LoadAnswers(ctx context.Context, store SessionStore) (*Answers, error) {
	a := &Answers{}
	raw := make(map[string]string, len(Fields))
	for _, f := range Fields {
		v, ok, err := store.Get(ctx, f.Key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Key, err)
		}
		if ok && v != "" {
			raw[f.Key] = v
		}
	}

	if lt, ok := raw[KeyLoanType]; ok {
		if b, err := ParseBranch(lt); err == nil {
			a.SetBranch(b)
		}
	}
	for key, v := range raw {
		if key == KeyLoanType {
			continue
		}
		_ = a.Set(key, v)
	}
	return a, nil
}

// Save writes every non-empty answer to store.
func (a *Answers) Save(ctx context.Context, store SessionStore) error {
	for key, v := range a.Values() {
		if err := store.Set(ctx, key, v); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks present values against the schema enumerations.
func (a *Answers) Validate() []FieldError {
	var errs []FieldError
	vals := a.Values()
	for _, f := range Fields {
		v, ok := vals[f.Key]
		if !ok {
			continue
		}
		if !f.Allows(v) {
			errs = append(errs, FieldError{Key: f.Key, Message: fmt.Sprintf("%q is not an accepted value", v)})
		}
	}
	return errs
}

// MissingRequired lists required keys without a value. A false residency
// flag counts as present.
func (a *Answers) MissingRequired() []string {
	vals := a.Values()
	var missing []string
	for _, key := range RequiredKeys() {
		if _, ok := vals[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Payload assembles the submission body for the chosen branch.
func (a *Answers) Payload() map[string]interface{} {
	vals := a.Values()
	branch := a.Branch()
	payload := make(map[string]interface{})

	for _, f := range Fields {
		if f.Send == "" || !f.AppliesTo(branch) {
			continue
		}
		v := vals[f.Key]
		for _, fb := range f.Fallback {
			if v != "" {
				break
			}
			v = vals[fb]
		}
		if v == "" {
			continue
		}
		if f.Kind == KindBool {
			payload[f.Send] = v == "true"
			continue
		}
		payload[f.Send] = v
	}
	return payload
}

// IsUAEResident reads the residency flag, false when unset.
func (a *Answers) IsUAEResident() bool {
	return a.Common.IsUAEResident != nil && *a.Common.IsUAEResident
}
