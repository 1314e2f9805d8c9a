package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirements(t *testing.T) {
	tests := []struct {
		path string
		want StepRequirement
	}{
		{"/get-mortgage/step1", StepRequirement{Step: 1}},
		{"/get-mortgage/step2", StepRequirement{Step: 2}},
		{"/get-mortgage/step3/", StepRequirement{Step: 3}},
		{"/get-mortgage/purchase/step2", StepRequirement{Step: 3, Branch: BranchPurchase}},
		{"/get-mortgage/purchase/step8", StepRequirement{Step: 9, Branch: BranchPurchase}},
		{"/get-mortgage/purchase/complete", StepRequirement{Step: 9, Branch: BranchPurchase}},
		{"/get-mortgage/refinance/step2", StepRequirement{Step: 3, Branch: BranchRefinance}},
		{"/get-mortgage/refinance/step7", StepRequirement{Step: 8, Branch: BranchRefinance}},
		{"/get-mortgage/refinance/complete", StepRequirement{Step: 8, Branch: BranchRefinance}},
		{"/get-mortgage/investment/step2", StepRequirement{Step: 3, Branch: BranchInvestment}},
		{"/get-mortgage/investment/step9", StepRequirement{Step: 10, Branch: BranchInvestment}},
		{"/get-mortgage/investment/complete", StepRequirement{Step: 10, Branch: BranchInvestment}},
		{"/get-mortgage/refinance/step8", StepRequirement{Step: 1}},
		{"/somewhere/else", StepRequirement{Step: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Requirements(tt.path))
		})
	}
}

func TestScreens(t *testing.T) {
	assert.Equal(t, 9, FinalStep(BranchPurchase))
	assert.Equal(t, 8, FinalStep(BranchRefinance))
	assert.Equal(t, 10, FinalStep(BranchInvestment))
	assert.Equal(t, 0, FinalStep(BranchNone))

	for _, b := range Branches {
		screens := Screens(b)
		last := screens[len(screens)-1]
		assert.True(t, last.IsContact())
		assert.Equal(t, FinalStep(b), last.Step)
		for i, s := range screens {
			assert.Equal(t, i+3, s.Step, "%s screens are strictly linear", b)
		}
	}

	s, ok := ScreenForKey(BranchInvestment, KeyPropertyType)
	require.True(t, ok)
	assert.Equal(t, Screen{Path: "/get-mortgage/investment/step8", Step: 9, Key: KeyPropertyType}, s)

	s, ok = ScreenForStep(BranchRefinance, 7)
	require.True(t, ok)
	assert.Equal(t, KeyMonthlyIncomeRefinance, s.Key)

	s, ok = ScreenForStep(BranchNone, 2)
	require.True(t, ok)
	assert.Equal(t, PathResidency, s.Path)

	_, ok = ScreenForKey(BranchRefinance, KeyBudgetRange)
	assert.False(t, ok)
}

func TestParseBranch(t *testing.T) {
	b, err := ParseBranch("investment")
	require.NoError(t, err)
	assert.Equal(t, BranchInvestment, b)

	_, err = ParseBranch("remortgage")
	assert.ErrorIs(t, err, ErrUnknownBranch)
}

func TestMachine(t *testing.T) {
	ctx := context.Background()

	t.Run("linear refinance walk", func(t *testing.T) {
		m, err := NewMachine(BranchRefinance)
		require.NoError(t, err)
		assert.Equal(t, StateEntry, m.Current())

		require.NoError(t, m.Fire(ctx, EventChooseLoanType))
		require.NoError(t, m.Fire(ctx, EventChooseResidency))
		assert.False(t, m.Can(EventCaptureContact))

		for i := 0; i < 5; i++ {
			next, ok := m.NextScreen()
			require.True(t, ok)
			assert.False(t, next.IsContact())
			require.NoError(t, m.Fire(ctx, EventAnswer))
		}
		next, ok := m.NextScreen()
		require.True(t, ok)
		assert.True(t, next.IsContact())
		assert.False(t, m.Can(EventAnswer))

		require.NoError(t, m.Fire(ctx, EventCaptureContact))
		require.NoError(t, m.Fire(ctx, EventSubmit))
		require.NoError(t, m.Fire(ctx, EventFinish))
		assert.Equal(t, StateComplete, m.Current())
	})

	t.Run("degraded finish skips submitted", func(t *testing.T) {
		m, err := NewMachine(BranchPurchase)
		require.NoError(t, err)
		assert.Error(t, m.Fire(ctx, EventFinish))

		require.NoError(t, m.Fire(ctx, EventChooseLoanType))
		require.NoError(t, m.Fire(ctx, EventChooseResidency))
		for range branchQuestions[BranchPurchase] {
			require.NoError(t, m.Fire(ctx, EventAnswer))
		}
		require.NoError(t, m.Fire(ctx, EventCaptureContact))
		require.NoError(t, m.Fire(ctx, EventFinish))
		assert.Equal(t, StateComplete, m.Current())
	})

	t.Run("unknown branch", func(t *testing.T) {
		_, err := NewMachine("remortgage")
		assert.ErrorIs(t, err, ErrUnknownBranch)
	})

	t.Run("replay stops at first gap", func(t *testing.T) {
		a := &Answers{}
		require.NoError(t, a.Set(KeyLoanType, "investment"))
		require.NoError(t, a.Set(KeyIsUAEResident, "false"))
		require.NoError(t, a.Set(KeyResidencyStatus, "non-resident"))
		require.NoError(t, a.Set(KeyInvestmentGoal, "rental-income"))
		require.NoError(t, a.Set(KeyInvestmentBudget, "1m-2m"))

		m, err := ReplayMachine(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, answeredState(KeyInvestmentGoal), m.Current())
		next, ok := m.NextScreen()
		require.True(t, ok)
		assert.Equal(t, KeyInvestorExperience, next.Key)
	})
}
