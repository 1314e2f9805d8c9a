package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Machine states.
const (
	StateEntry           = "entry"
	StateLoanTypeChosen  = "loan_type_chosen"
	StateResidencyChosen = "residency_chosen"
	StateContactCaptured = "contact_captured"
	StateSubmitted       = "submitted"
	StateComplete        = "complete"
)

// Machine events.
const (
	EventChooseLoanType  = "choose_loan_type"
	EventChooseResidency = "choose_residency"
	EventAnswer          = "answer"
	EventCaptureContact  = "capture_contact"
	EventSubmit          = "submit"
	EventFinish          = "finish"
)

// answeredState names the state reached after answering key.
func answeredState(key string) string {
	return key + "_answered"
}

// Machine is the linear state machine of one branch.
type Machine struct {
	branch Branch
	fsm    *fsm.FSM
}

// NewMachine builds the machine for b, starting at entry.
func NewMachine(b Branch) (*Machine, error) {
	questions, ok := branchQuestions[b]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBranch, b)
	}

	events := fsm.Events{
		{Name: EventChooseLoanType, Src: []string{StateEntry}, Dst: StateLoanTypeChosen},
		{Name: EventChooseResidency, Src: []string{StateLoanTypeChosen}, Dst: StateResidencyChosen},
	}
	prev := StateResidencyChosen
	for _, key := range questions {
		next := answeredState(key)
		events = append(events, fsm.EventDesc{Name: EventAnswer, Src: []string{prev}, Dst: next})
		prev = next
	}
	events = append(events,
		fsm.EventDesc{Name: EventCaptureContact, Src: []string{prev}, Dst: StateContactCaptured},
		fsm.EventDesc{Name: EventSubmit, Src: []string{StateContactCaptured}, Dst: StateSubmitted},
		fsm.EventDesc{Name: EventFinish, Src: []string{StateSubmitted, StateContactCaptured}, Dst: StateComplete},
	)

	return &Machine{
		branch: b,
		fsm:    fsm.NewFSM(StateEntry, events, fsm.Callbacks{}),
	}, nil
}

// ReplayMachine rebuilds the machine from stored answers, firing events for
// the leading answers that are present. It stops at the first gap.
func ReplayMachine(ctx context.Context, a *Answers) (*Machine, error) {
	m, err := NewMachine(a.Branch())
	if err != nil {
		return nil, err
	}
	if err := m.Fire(ctx, EventChooseLoanType); err != nil {
		return nil, err
	}

	vals := a.Values()
	if vals[KeyResidencyStatus] == "" || a.Common.IsUAEResident == nil {
		return m, nil
	}
	if err := m.Fire(ctx, EventChooseResidency); err != nil {
		return nil, err
	}
	for _, key := range branchQuestions[m.branch] {
		if vals[key] == "" {
			return m, nil
		}
		if err := m.Fire(ctx, EventAnswer); err != nil {
			return nil, err
		}
	}
	if a.Contact.FullName == "" || a.Contact.Email == "" || a.Contact.PhoneNumber == "" {
		return m, nil
	}
	if err := m.Fire(ctx, EventCaptureContact); err != nil {
		return nil, err
	}
	if a.ApplicationID != "" {
		if err := m.Fire(ctx, EventSubmit); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Fire applies event. A transition to the same state is not an error.
func (m *Machine) Fire(ctx context.Context, event string) error {
	err := m.fsm.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return fmt.Errorf("%s from %s: %w", event, m.fsm.Current(), err)
	}
	return nil
}

// Can reports whether event is allowed now.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

func (m *Machine) Current() string {
	return m.fsm.Current()
}

func (m *Machine) Branch() Branch {
	return m.branch
}

// NextScreen is the screen the machine is waiting on. ok is false once the
// contact details are captured.
func (m *Machine) NextScreen() (Screen, bool) {
	screens := Screens(m.branch)
	switch m.Current() {
	case StateEntry:
		return Screen{Path: PathLoanType, Step: 1, Key: KeyLoanType}, true
	case StateLoanTypeChosen:
		return Screen{Path: PathResidency, Step: 2, Key: KeyResidencyStatus}, true
	case StateResidencyChosen:
		return screens[0], true
	}
	for i, s := range screens {
		if !s.IsContact() && m.Current() == answeredState(s.Key) {
			return screens[i+1], true
		}
	}
	return Screen{}, false
}
