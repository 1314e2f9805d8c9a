package wizard

// Answer keys as stored in the session store and sent to the API.
const (
	KeyLoanType        = "loanType"
	KeyIsUAEResident   = "isUAEResident"
	KeyResidencyStatus = "residencyStatus"

	KeyPropertyStatus   = "propertyStatus"
	KeyPropertyType     = "propertyType"
	KeyBudgetRange      = "budgetRange"
	KeyDownPayment      = "downPayment"
	KeyMonthlyIncome    = "monthlyIncome"
	KeyEmploymentStatus = "employmentStatus"

	KeyRefinanceReason        = "refinanceReason"
	KeyCurrentRate            = "currentRate"
	KeyRemainingBalance       = "remainingBalance"
	KeyPropertyValue          = "propertyValue"
	KeyMonthlyIncomeRefinance = "monthlyIncomeRefinance"

	KeyInvestmentGoal               = "investmentGoal"
	KeyInvestorExperience           = "investorExperience"
	KeyInvestmentBudget             = "investmentBudget"
	KeyInvestmentBudgetRange        = "investmentBudgetRange"
	KeyInvestmentHorizon            = "investmentHorizon"
	KeyInvestmentIncomeSource       = "investmentIncomeSource"
	KeyInvestmentFinancingStructure = "investmentFinancingStructure"
	KeyInvestmentDownPayment        = "investmentDownPayment"

	KeyFullName       = "fullName"
	KeyEmail          = "email"
	KeyPhoneNumber    = "phoneNumber"
	KeyContactMethod  = "contactMethod"
	KeyBestTimeToCall = "bestTimeToCall"

	KeyApplicationID = "applicationId"
)

// Kind is how a stored string is interpreted.
type Kind int

const (
	KindEnum Kind = iota
	KindBool
	KindText
)

// Field describes one answer key. Send is the payload name, empty when the
// key never leaves the client. Fallback keys are read, in order, when the
// key itself is empty.
type Field struct {
	Key      string
	Branches []Branch
	Kind     Kind
	Enum     []string
	Send     string
	Fallback []string
	Required bool
}

// AppliesTo reports whether the field belongs to branch. Fields without
// branches are shared.
func (f Field) AppliesTo(b Branch) bool {
	if len(f.Branches) == 0 {
		return true
	}
	for _, fb := range f.Branches {
		if fb == b {
			return true
		}
	}
	return false
}

// Allows reports whether v is an accepted value.
func (f Field) Allows(v string) bool {
	switch f.Kind {
	case KindBool:
		return v == "true" || v == "false"
	case KindEnum:
		for _, e := range f.Enum {
			if e == v {
				return true
			}
		}
		return false
	}
	return true
}

// Enumerations shared with the landing API whitelist.
var (
	LoanTypes          = []string{string(BranchPurchase), string(BranchRefinance), string(BranchInvestment)}
	ResidencyStatuses  = []string{"uae-resident", "non-resident"}
	PropertyStatuses   = []string{"browsing", "looking", "found"}
	PropertyTypes      = []string{"villa", "apartment", "townhouse", "not-sure"}
	BudgetRangeIDs     = []string{"under-1m", "1m-2m", "2m-5m", "above-5m"}
	DownPayments       = []string{"10-percent", "20-25-percent", "30-plus-percent", "need-guidance"}
	IncomeRangeIDs     = []string{"under-15k", "15k-30k", "30k-50k", "above-50k"}
	EmploymentStatuses = []string{"uae-resident-employee", "uae-national", "expat-work-visa", "self-employed"}

	RefinanceReasons    = []string{"lower-rate", "cash-out", "switching-bank", "debt-consolidation"}
	CurrentRates        = []string{"above-4", "3-5-to-4", "3-to-3-5", "below-3"}
	RemainingBalanceIDs = []string{"under-500k", "500k-1m", "1m-2m", "above-2m"}
	PropertyValueIDs    = []string{"under-2m", "2m-5m", "5m-10m", "above-10m"}

	InvestmentGoals        = []string{"rental-income", "capital-appreciation", "both-returns", "short-term-flip"}
	InvestorExperiences    = []string{"first-investment", "own-1-2", "own-3-plus", "professional-investor"}
	InvestmentHorizons     = []string{"short-term", "mid-term", "long-term"}
	InvestmentIncomeSrcs   = []string{"employment-salary", "business-income", "investment-returns", "multiple-sources"}
	FinancingStructures    = []string{"traditional-mortgage", "islamic-financing", "developer-financing", "need-advice"}
	InvestmentDownPayments = []string{"25-percent", "30-40-percent", "50-plus-percent", "need-financing-options"}

	ContactMethods  = []string{"email", "phone", "whatsapp", "both"}
	BestTimesToCall = []string{"morning", "afternoon", "evening", "anytime"}
)

var (
	purchaseOnly   = []Branch{BranchPurchase}
	refinanceOnly  = []Branch{BranchRefinance}
	investmentOnly = []Branch{BranchInvestment}
)

// Fields is the single definition of every answer key. Clearing the store and
// assembling the submission payload both walk this list.
var Fields = []Field{
	{Key: KeyLoanType, Enum: LoanTypes, Send: KeyLoanType, Required: true},
	{Key: KeyIsUAEResident, Kind: KindBool, Send: KeyIsUAEResident, Required: true},
	{Key: KeyResidencyStatus, Enum: ResidencyStatuses, Send: KeyResidencyStatus, Required: true},

	{Key: KeyPropertyStatus, Branches: purchaseOnly, Enum: PropertyStatuses, Send: KeyPropertyStatus},
	{Key: KeyPropertyType, Branches: []Branch{BranchPurchase, BranchInvestment}, Enum: PropertyTypes, Send: KeyPropertyType},
	{Key: KeyBudgetRange, Branches: purchaseOnly, Enum: BudgetRangeIDs, Send: KeyBudgetRange},
	{Key: KeyDownPayment, Branches: purchaseOnly, Enum: DownPayments, Send: KeyDownPayment},
	{Key: KeyMonthlyIncome, Branches: purchaseOnly, Enum: IncomeRangeIDs, Send: KeyMonthlyIncome},
	{Key: KeyEmploymentStatus, Branches: purchaseOnly, Enum: EmploymentStatuses, Send: KeyEmploymentStatus},

	{Key: KeyRefinanceReason, Branches: refinanceOnly, Enum: RefinanceReasons, Send: KeyRefinanceReason},
	{Key: KeyCurrentRate, Branches: refinanceOnly, Enum: CurrentRates, Send: KeyCurrentRate},
	{Key: KeyRemainingBalance, Branches: refinanceOnly, Enum: RemainingBalanceIDs, Send: KeyRemainingBalance},
	{Key: KeyPropertyValue, Branches: refinanceOnly, Enum: PropertyValueIDs, Send: KeyPropertyValue},
	{Key: KeyMonthlyIncomeRefinance, Branches: refinanceOnly, Enum: IncomeRangeIDs, Send: KeyMonthlyIncome},

	{Key: KeyInvestmentGoal, Branches: investmentOnly, Enum: InvestmentGoals, Send: KeyInvestmentGoal},
	{Key: KeyInvestorExperience, Branches: investmentOnly, Enum: InvestorExperiences, Send: KeyInvestorExperience},
	{
		Key:      KeyInvestmentBudget,
		Branches: investmentOnly,
		Enum:     BudgetRangeIDs,
		Send:     KeyInvestmentBudget,
		Fallback: []string{KeyInvestmentBudgetRange, KeyBudgetRange},
	},
	{Key: KeyInvestmentBudgetRange, Branches: investmentOnly, Enum: BudgetRangeIDs},
	{Key: KeyInvestmentHorizon, Branches: investmentOnly, Enum: InvestmentHorizons, Send: KeyInvestmentHorizon},
	{Key: KeyInvestmentIncomeSource, Branches: investmentOnly, Enum: InvestmentIncomeSrcs, Send: KeyInvestmentIncomeSource},
	{Key: KeyInvestmentFinancingStructure, Branches: investmentOnly, Enum: FinancingStructures, Send: KeyInvestmentFinancingStructure},
	{Key: KeyInvestmentDownPayment, Branches: investmentOnly, Enum: InvestmentDownPayments, Send: KeyInvestmentDownPayment},

	{Key: KeyFullName, Kind: KindText, Send: KeyFullName, Required: true},
	{Key: KeyEmail, Kind: KindText, Send: KeyEmail, Required: true},
	{Key: KeyPhoneNumber, Kind: KindText, Send: KeyPhoneNumber, Required: true},
	{Key: KeyContactMethod, Enum: ContactMethods, Send: KeyContactMethod},
	{Key: KeyBestTimeToCall, Enum: BestTimesToCall, Send: KeyBestTimeToCall},

	{Key: KeyApplicationID, Kind: KindText},
}

// FieldByKey looks a field up by its storage key.
func FieldByKey(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// StoredKeys returns every key the wizard may write, the session record
// included.
func StoredKeys() []string {
	keys := make([]string, 0, len(Fields)+1)
	keys = append(keys, SessionKey)
	for _, f := range Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// RequiredKeys lists the fields that must be present before submitting.
func RequiredKeys() []string {
	var keys []string
	for _, f := range Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
