package wizard

import (
	"context"
	"strconv"

	"mortgage-funnel/internal/common/logger"
	"mortgage-funnel/internal/common/metrics"
)

// Guard rejection reasons.
const (
	ReasonNoSession           = "No valid session"
	ReasonExpired             = "Session expired"
	ReasonStep1Incomplete     = "Step 1 not completed"
	ReasonPrerequisites       = "Basic prerequisites not met"
	ReasonWrongBranch         = "Invalid loan type for this flow"
	ReasonBasicFlowIncomplete = "Basic flow not completed"
	ReasonSkippedSteps        = "Cannot skip steps"
	ReasonValidationError     = "Session validation error"
)

// Result is the outcome of a guard check.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Guard decides whether a screen may be shown. Apart from clearing an
// expired session it never writes; callers advance progress through the
// tracker.
type Guard struct {
	tracker *Tracker
	log     logger.Logger
}

func NewGuard(tracker *Tracker, log logger.Logger) *Guard {
	return &Guard{tracker: tracker, log: logger.Component(log, "guard")}
}

// Validate checks the stored session against the step and, for branch
// screens, the branch. Step 1 always passes. Store failures on later steps
// fail closed.
func (g *Guard) Validate(ctx context.Context, step int, branch Branch) Result {
	res := g.validate(ctx, step, branch)

	label := "ok"
	if !res.Valid {
		label = res.Reason
		g.log.Debug("step rejected", map[string]interface{}{
			"step":   step,
			"branch": string(branch),
			"reason": res.Reason,
		})
	}
	metrics.StepValidations.WithLabelValues(strconv.Itoa(step), label).Inc()
	return res
}

func (g *Guard) validate(ctx context.Context, step int, branch Branch) Result {
	if step <= 1 {
		return Result{Valid: true}
	}

	rec, err := g.tracker.Load(ctx)
	if err != nil {
		return reject(ReasonValidationError)
	}
	if rec == nil || !rec.IsValid {
		return reject(ReasonNoSession)
	}
	if g.tracker.IsExpired(rec) {
		if err := g.tracker.Clear(ctx); err != nil {
			g.log.Warn("failed to clear expired session", map[string]interface{}{"error": err.Error()})
		}
		return reject(ReasonExpired)
	}

	store := g.tracker.Store()
	loanType, hasLoanType, err := store.Get(ctx, KeyLoanType)
	if err != nil {
		return reject(ReasonValidationError)
	}
	hasLoanType = hasLoanType && loanType != ""

	if step == 2 && !hasLoanType {
		return reject(ReasonStep1Incomplete)
	}

	if step > 2 {
		residency, hasResidency, err := store.Get(ctx, KeyResidencyStatus)
		if err != nil {
			return reject(ReasonValidationError)
		}
		if !hasLoanType || !hasResidency || residency == "" {
			return reject(ReasonPrerequisites)
		}
		if branch != BranchNone {
			if loanType != string(branch) {
				return reject(ReasonWrongBranch)
			}
			if rec.CurrentStep < 2 {
				return reject(ReasonBasicFlowIncomplete)
			}
			if rec.CurrentStep < step-1 {
				return reject(ReasonSkippedSteps)
			}
		}
	}

	return Result{Valid: true}
}

func reject(reason string) Result {
	return Result{Valid: false, Reason: reason}
}
