package wizard

import (
	"context"
	"fmt"

	"mortgage-funnel/internal/common/logger"
)

// Progress summarizes where a flow attempt stands.
type Progress struct {
	SessionID     string  `json:"sessionId,omitempty"`
	Branch        Branch  `json:"loanType,omitempty"`
	CurrentStep   int     `json:"currentStep"`
	FinalStep     int     `json:"finalStep,omitempty"`
	State         string  `json:"state"`
	Next          *Screen `json:"next,omitempty"`
	ExpiresInMins *int    `json:"expiresInMinutes,omitempty"`
}

// Wizard drives one flow attempt against a session store.
type Wizard struct {
	store   SessionStore
	tracker *Tracker
	guard   *Guard
	log     logger.Logger
}

func New(store SessionStore, log logger.Logger, opts ...TrackerOption) *Wizard {
	tracker := NewTracker(store, log, opts...)
	return &Wizard{
		store:   store,
		tracker: tracker,
		guard:   NewGuard(tracker, log),
		log:     logger.Component(log, "wizard"),
	}
}

func (w *Wizard) Tracker() *Tracker { return w.tracker }
func (w *Wizard) Guard() *Guard     { return w.guard }

// Start discards any previous attempt and opens a new session.
func (w *Wizard) Start(ctx context.Context) (string, error) {
	if err := w.tracker.Clear(ctx); err != nil {
		return "", err
	}
	id, err := w.tracker.Create(ctx)
	if err != nil {
		return "", err
	}
	if err := w.tracker.Update(ctx, 1); err != nil {
		return "", err
	}
	return id, nil
}

// Answer records one question's answer after checking the guard for its
// screen.
func (w *Wizard) Answer(ctx context.Context, key, value string) (*Progress, error) {
	answers, err := LoadAnswers(ctx, w.store)
	if err != nil {
		return nil, err
	}

	switch key {
	case KeyLoanType:
		if err := w.chooseLoanType(ctx, answers, value); err != nil {
			return nil, err
		}
	case KeyResidencyStatus:
		if err := w.chooseResidency(ctx, value); err != nil {
			return nil, err
		}
	case KeyIsUAEResident:
		return nil, fmt.Errorf("%w: %s is derived from %s", ErrUnexpectedKey, key, KeyResidencyStatus)
	default:
		if err := w.answerScreen(ctx, answers.Branch(), key, value); err != nil {
			return nil, err
		}
	}

	w.log.Debug("answer recorded", map[string]interface{}{"key": key})
	return w.Status(ctx)
}

func (w *Wizard) chooseLoanType(ctx context.Context, answers *Answers, value string) error {
	b, err := ParseBranch(value)
	if err != nil {
		return err
	}
	if current := answers.Branch(); current != BranchNone && current != b {
		return fmt.Errorf("%w: already on %s", ErrBranchLocked, current)
	}
	if err := w.requireSession(ctx, 1, BranchNone); err != nil {
		return err
	}
	if err := w.store.Set(ctx, KeyLoanType, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", KeyLoanType, err)
	}
	return w.tracker.Update(ctx, 2)
}

func (w *Wizard) chooseResidency(ctx context.Context, value string) error {
	if err := w.requireSession(ctx, 2, BranchNone); err != nil {
		return err
	}
	f, _ := FieldByKey(KeyResidencyStatus)
	if !f.Allows(value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidAnswer, KeyResidencyStatus, value)
	}
	resident := "false"
	if value == "uae-resident" {
		resident = "true"
	}
	if err := w.store.Set(ctx, KeyIsUAEResident, resident); err != nil {
		return fmt.Errorf("write %s: %w", KeyIsUAEResident, err)
	}
	if err := w.store.Set(ctx, KeyResidencyStatus, value); err != nil {
		return fmt.Errorf("write %s: %w", KeyResidencyStatus, err)
	}
	return w.tracker.Update(ctx, 2)
}

func (w *Wizard) answerScreen(ctx context.Context, b Branch, key, value string) error {
	if b == BranchNone {
		return fmt.Errorf("%w: %s", ErrSessionRejected, ReasonPrerequisites)
	}
	screen, ok := ScreenForKey(b, key)
	if !ok || screen.IsContact() {
		return fmt.Errorf("%w: %s is not asked on the %s flow", ErrUnexpectedKey, key, b)
	}
	if err := w.requireSession(ctx, screen.Step, b); err != nil {
		return err
	}
	f, _ := FieldByKey(key)
	if !f.Allows(value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidAnswer, key, value)
	}
	if err := w.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return w.tracker.Update(ctx, screen.Step)
}

// CaptureContact stores the contact screen. Missing required values are
// reported by the gateway at submission time.
func (w *Wizard) CaptureContact(ctx context.Context, c ContactDetails) (*Progress, error) {
	answers, err := LoadAnswers(ctx, w.store)
	if err != nil {
		return nil, err
	}
	b := answers.Branch()
	if b == BranchNone {
		return nil, fmt.Errorf("%w: %s", ErrSessionRejected, ReasonPrerequisites)
	}
	final := FinalStep(b)
	if err := w.requireSession(ctx, final, b); err != nil {
		return nil, err
	}

	answers.Contact = c
	for _, key := range []string{KeyContactMethod, KeyBestTimeToCall} {
		v := answers.Values()[key]
		if f, _ := FieldByKey(key); v != "" && !f.Allows(v) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidAnswer, key, v)
		}
	}
	if err := answers.Save(ctx, w.store); err != nil {
		return nil, err
	}
	if err := w.tracker.Update(ctx, final); err != nil {
		return nil, err
	}
	return w.Status(ctx)
}

func (w *Wizard) requireSession(ctx context.Context, step int, b Branch) error {
	if res := w.guard.Validate(ctx, step, b); !res.Valid {
		return fmt.Errorf("%w: %s", ErrSessionRejected, res.Reason)
	}
	return nil
}

// Status reports the session and the next screen to show.
func (w *Wizard) Status(ctx context.Context) (*Progress, error) {
	rec, err := w.tracker.Recover(ctx)
	if err != nil {
		return nil, err
	}
	p := &Progress{State: StateEntry}
	if rec == nil {
		p.Next = &Screen{Path: PathLoanType, Step: 1, Key: KeyLoanType}
		return p, nil
	}
	p.SessionID = rec.ID
	p.CurrentStep = rec.CurrentStep
	if mins, ok := w.tracker.ExpiryWarning(ctx); ok {
		p.ExpiresInMins = &mins
	}

	answers, err := LoadAnswers(ctx, w.store)
	if err != nil {
		return nil, err
	}
	if answers.Branch() == BranchNone {
		p.Next = &Screen{Path: PathLoanType, Step: 1, Key: KeyLoanType}
		return p, nil
	}

	m, err := ReplayMachine(ctx, answers)
	if err != nil {
		return nil, err
	}
	p.Branch = answers.Branch()
	p.FinalStep = FinalStep(p.Branch)
	p.State = m.Current()
	if next, ok := m.NextScreen(); ok {
		p.Next = &next
	}
	return p, nil
}

// Complete moves the flow to its terminal state. A degraded submission keeps
// the stored answers so they can be sent again; otherwise the store is
// cleared.
func (w *Wizard) Complete(ctx context.Context, degraded bool) (string, error) {
	answers, err := LoadAnswers(ctx, w.store)
	if err != nil {
		return "", err
	}
	m, err := ReplayMachine(ctx, answers)
	if err != nil {
		return "", err
	}
	if !degraded && m.Can(EventSubmit) {
		if err := m.Fire(ctx, EventSubmit); err != nil {
			return "", err
		}
	}
	if err := m.Fire(ctx, EventFinish); err != nil {
		return "", err
	}

	if degraded {
		w.log.Warn("flow completed without a confirmed submission", map[string]interface{}{
			"loanType": string(answers.Branch()),
		})
		return m.Current(), nil
	}
	if err := w.tracker.Clear(ctx); err != nil {
		return "", err
	}
	return m.Current(), nil
}
