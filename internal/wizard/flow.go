package wizard

import (
	"fmt"
	"strings"
)

// Branch is the loan type chosen at step 1. It fixes every later screen.
type Branch string

const (
	BranchNone       Branch = ""
	BranchPurchase   Branch = "new-purchase"
	BranchRefinance  Branch = "refinance"
	BranchInvestment Branch = "investment"
)

// Branches lists the selectable loan types in display order.
var Branches = []Branch{BranchPurchase, BranchRefinance, BranchInvestment}

// ParseBranch accepts a loan type value as stored in the answer set.
func ParseBranch(s string) (Branch, error) {
	for _, b := range Branches {
		if string(b) == s {
			return b, nil
		}
	}
	return BranchNone, fmt.Errorf("%w: %q", ErrUnknownBranch, s)
}

// segment is the path component the branch screens live under.
func (b Branch) segment() string {
	switch b {
	case BranchPurchase:
		return "purchase"
	case BranchRefinance:
		return "refinance"
	case BranchInvestment:
		return "investment"
	}
	return ""
}

const (
	basePath = "/get-mortgage"

	PathLoanType  = basePath + "/step1"
	PathResidency = basePath + "/step2"
	PathRouter    = basePath + "/step3"

	// ContactKey marks the screen that captures the contact details.
	ContactKey = "contact"
)

// StepRequirement parametrizes one guard call.
type StepRequirement struct {
	Step   int
	Branch Branch
}

// Screen is one position in a branch.
type Screen struct {
	Path string
	Step int
	Key  string
}

// IsContact reports whether the screen captures contact details.
func (s Screen) IsContact() bool {
	return s.Key == ContactKey
}

// branchQuestions holds the question keys asked after the shared prefix.
var branchQuestions = map[Branch][]string{
	BranchPurchase: {
		KeyPropertyStatus,
		KeyPropertyType,
		KeyBudgetRange,
		KeyDownPayment,
		KeyMonthlyIncome,
		KeyEmploymentStatus,
	},
	BranchRefinance: {
		KeyRefinanceReason,
		KeyCurrentRate,
		KeyRemainingBalance,
		KeyPropertyValue,
		KeyMonthlyIncomeRefinance,
	},
	BranchInvestment: {
		KeyInvestmentGoal,
		KeyInvestorExperience,
		KeyInvestmentBudget,
		KeyInvestmentIncomeSource,
		KeyInvestmentFinancingStructure,
		KeyInvestmentHorizon,
		KeyPropertyType,
	},
}

var requirements = buildRequirements()

func buildRequirements() map[string]StepRequirement {
	m := map[string]StepRequirement{
		PathLoanType:  {Step: 1},
		PathResidency: {Step: 2},
		PathRouter:    {Step: 3},
	}
	for _, b := range Branches {
		for _, s := range Screens(b) {
			m[s.Path] = StepRequirement{Step: s.Step, Branch: b}
		}
		m[CompletePath(b)] = StepRequirement{Step: FinalStep(b), Branch: b}
	}
	return m
}

// Requirements returns the guard parameters for a path. Unknown paths fall
// back to the entry step.
func Requirements(path string) StepRequirement {
	path = strings.TrimSuffix(path, "/")
	if req, ok := requirements[path]; ok {
		return req
	}
	return StepRequirement{Step: 1}
}

// Screens returns the branch screens after the shared prefix, the contact
// screen last. Branch screen n (1-based, starting at step2) sits at step n+1.
func Screens(b Branch) []Screen {
	questions, ok := branchQuestions[b]
	if !ok {
		return nil
	}
	screens := make([]Screen, 0, len(questions)+1)
	for i, key := range questions {
		screens = append(screens, Screen{
			Path: fmt.Sprintf("%s/%s/step%d", basePath, b.segment(), i+2),
			Step: i + 3,
			Key:  key,
		})
	}
	n := len(questions)
	screens = append(screens, Screen{
		Path: fmt.Sprintf("%s/%s/step%d", basePath, b.segment(), n+2),
		Step: n + 3,
		Key:  ContactKey,
	})
	return screens
}

// FinalStep is the step number of the branch's contact screen.
func FinalStep(b Branch) int {
	questions, ok := branchQuestions[b]
	if !ok {
		return 0
	}
	return len(questions) + 3
}

// CompletePath is where the branch ends after submission.
func CompletePath(b Branch) string {
	return fmt.Sprintf("%s/%s/complete", basePath, b.segment())
}

// ScreenForKey finds the branch screen asking key.
func ScreenForKey(b Branch, key string) (Screen, bool) {
	for _, s := range Screens(b) {
		if s.Key == key {
			return s, true
		}
	}
	return Screen{}, false
}

// ScreenForStep finds the branch screen at step. Steps 1 and 2 are the shared
// prefix and are returned with their generic paths.
func ScreenForStep(b Branch, step int) (Screen, bool) {
	switch step {
	case 1:
		return Screen{Path: PathLoanType, Step: 1, Key: KeyLoanType}, true
	case 2:
		return Screen{Path: PathResidency, Step: 2, Key: KeyResidencyStatus}, true
	}
	for _, s := range Screens(b) {
		if s.Step == step {
			return s, true
		}
	}
	return Screen{}, false
}
