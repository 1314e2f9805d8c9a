package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortgage-funnel/internal/wizard/store"
)

func refinanceAnswers(t *testing.T) *Answers {
	t.Helper()
	a := &Answers{}
	for _, kv := range [][2]string{
		{KeyLoanType, "refinance"},
		{KeyIsUAEResident, "true"},
		{KeyResidencyStatus, "uae-resident"},
		{KeyRefinanceReason, "cash-out"},
		{KeyCurrentRate, "above-4"},
		{KeyRemainingBalance, "1m-2m"},
		{KeyPropertyValue, "5m-10m"},
		{KeyMonthlyIncomeRefinance, "above-50k"},
		{KeyFullName, "Jane Doe"},
		{KeyEmail, "jane@example.com"},
		{KeyPhoneNumber, "+971501234567"},
	} {
		require.NoError(t, a.Set(kv[0], kv[1]))
	}
	return a
}

func TestAnswers_RefinancePayload(t *testing.T) {
	a := refinanceAnswers(t)

	assert.Empty(t, a.MissingRequired())
	assert.Empty(t, a.Validate())

	p := a.Payload()
	assert.Equal(t, "above-50k", p["monthlyIncome"])
	assert.NotContains(t, p, KeyMonthlyIncomeRefinance)
	assert.Equal(t, true, p["isUAEResident"])
	assert.Equal(t, "refinance", p["loanType"])
	assert.Equal(t, "Jane Doe", p["fullName"])
	assert.NotContains(t, p, KeyBudgetRange)
}

func TestAnswers_InvestmentBudgetFallback(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   interface{}
	}{
		{name: "own key", values: map[string]string{KeyInvestmentBudget: "2m-5m", KeyInvestmentBudgetRange: "1m-2m"}, want: "2m-5m"},
		{name: "range key", values: map[string]string{KeyInvestmentBudgetRange: "1m-2m", KeyBudgetRange: "above-5m"}, want: "1m-2m"},
		{name: "generic budget", values: map[string]string{KeyBudgetRange: "above-5m"}, want: "above-5m"},
		{name: "none", values: map[string]string{}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Answers{}
			require.NoError(t, a.Set(KeyLoanType, "investment"))
			for k, v := range tt.values {
				require.NoError(t, a.Set(k, v))
			}
			p := a.Payload()
			assert.Equal(t, tt.want, p[KeyInvestmentBudget])
			assert.NotContains(t, p, KeyBudgetRange)
			assert.NotContains(t, p, KeyInvestmentBudgetRange)
		})
	}
}

func TestAnswers_MissingRequired(t *testing.T) {
	a := refinanceAnswers(t)
	a.Contact.Email = ""
	assert.Equal(t, []string{KeyEmail}, a.MissingRequired())

	non := &Answers{}
	require.NoError(t, non.Set(KeyIsUAEResident, "false"))
	assert.NotContains(t, non.MissingRequired(), KeyIsUAEResident, "false is a value")
	assert.Contains(t, non.MissingRequired(), KeyLoanType)
}

func TestAnswers_SetRejectsForeignKeys(t *testing.T) {
	a := &Answers{}
	require.NoError(t, a.Set(KeyLoanType, "new-purchase"))

	assert.ErrorIs(t, a.Set(KeyRefinanceReason, "cash-out"), ErrUnexpectedKey)
	assert.ErrorIs(t, a.Set(KeyIsUAEResident, "maybe"), ErrInvalidAnswer)
	assert.ErrorIs(t, a.Set(KeyLoanType, "lease"), ErrUnknownBranch)
	require.NoError(t, a.Set(KeyBudgetRange, "1m-2m"))
	assert.Equal(t, "1m-2m", a.Purchase.BudgetRange)
}

func TestAnswers_Validate(t *testing.T) {
	a := refinanceAnswers(t)
	a.Refinance.CurrentRate = "7-percent"
	a.Contact.ContactMethod = "pigeon"

	errs := a.Validate()
	require.Len(t, errs, 2)
	keys := []string{errs[0].Key, errs[1].Key}
	assert.ElementsMatch(t, []string{KeyCurrentRate, KeyContactMethod}, keys)
	assert.Contains(t, errs[0].Error(), "not an accepted value")
}

func TestAnswers_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	a := refinanceAnswers(t)
	require.NoError(t, a.Save(ctx, mem))

	// a stray key from another branch is ignored on load
	require.NoError(t, mem.Set(ctx, KeyInvestmentGoal, "rental-income"))

	loaded, err := LoadAnswers(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, a.Values(), loaded.Values())
	assert.Nil(t, loaded.Investment)
	assert.True(t, loaded.IsUAEResident())

	_, err = LoadAnswers(ctx, brokenStore{})
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields {
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true
	}
	assert.Len(t, StoredKeys(), len(Fields)+1)
	assert.Equal(t, []string{KeyLoanType, KeyIsUAEResident, KeyResidencyStatus, KeyFullName, KeyEmail, KeyPhoneNumber}, RequiredKeys())

	for _, b := range Branches {
		for _, s := range Screens(b) {
			if s.IsContact() {
				continue
			}
			f, ok := FieldByKey(s.Key)
			require.True(t, ok, s.Key)
			assert.True(t, f.AppliesTo(b), "%s asked on %s", s.Key, b)
		}
	}
}
