package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/vetchat-assistant/internal/intent"
)

var (
	// ErrNotActive is returned by Next when no booking is in progress.
	ErrNotActive = errors.New("booking: flow not active")
	// ErrUnknownStep is returned by Next for a step outside the sequence.
	ErrUnknownStep = errors.New("booking: unknown step")
)

// Outcome classifies what a transition did.
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeRejected  Outcome = "rejected"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeReprompt  Outcome = "reprompt"
)

// Result is the output of a single transition.
type Result struct {
	State   State
	Reply   string
	Outcome Outcome
	// Booking carries the collected fields when Outcome is OutcomeConfirmed.
	// The caller persists it under FlowID; State is already back to Idle.
	Booking *Data
	FlowID  string
}

// AffirmativeKeywords confirm the summary.
var AffirmativeKeywords = intent.Keywords{"yes", "confirm", "correct", "ok", "sure"}

// NegativeKeywords cancel the summary.
var NegativeKeywords = intent.Keywords{"no", "cancel", "wrong"}

// Flow holds the predicates used at the confirming step. The affirmative
// matcher is consulted first, so a reply matching both sets confirms.
type Flow struct {
	affirm  intent.Matcher
	decline intent.Matcher
	newID   func() string
}

// NewFlow builds a flow; nil matchers fall back to the default keyword sets.
func NewFlow(affirm, decline intent.Matcher) *Flow {
	if affirm == nil {
		affirm = AffirmativeKeywords
	}
	if decline == nil {
		decline = NegativeKeywords
	}
	return &Flow{affirm: affirm, decline: decline, newID: uuid.NewString}
}

// Start opens a fresh booking regardless of any prior progress.
func (f *Flow) Start() Result {
	return Result{
		State:   State{Active: true, Step: StepAskingOwner, FlowID: f.newID()},
		Reply:   promptOwner,
		Outcome: OutcomeAdvanced,
	}
}

// Next applies one user message to an active state.
func (f *Flow) Next(s State, input string) (Result, error) {
	if !s.Active || s.Step == StepIdle {
		return Result{State: Idle()}, ErrNotActive
	}
	text := strings.TrimSpace(input)

	switch s.Step {
	case StepAskingOwner, StepAskingPet, StepAskingDateTime:
		if text == "" {
			return reprompt(s), nil
		}
		return f.collect(s, text), nil
	case StepAskingPhone:
		if !ValidatePhone(text) {
			return Result{State: s, Reply: invalidPhone, Outcome: OutcomeRejected}, nil
		}
		return f.collect(s, text), nil
	case StepConfirming:
		return f.confirm(s, text), nil
	default:
		return Result{State: Idle()}, fmt.Errorf("%w: %q", ErrUnknownStep, s.Step)
	}
}

func (f *Flow) collect(s State, text string) Result {
	next := s
	switch s.Step {
	case StepAskingOwner:
		next.Data.OwnerName = text
		next.Step = StepAskingPet
		return Result{State: next, Reply: promptPet(text), Outcome: OutcomeAdvanced}
	case StepAskingPet:
		next.Data.PetName = text
		next.Step = StepAskingPhone
		return Result{State: next, Reply: promptPhone, Outcome: OutcomeAdvanced}
	case StepAskingPhone:
		next.Data.Phone = text
		next.Step = StepAskingDateTime
		return Result{State: next, Reply: promptDateTime(next.Data.PetName), Outcome: OutcomeAdvanced}
	default:
		next.Data.PreferredDateTime = text
		next.Step = StepConfirming
		return Result{State: next, Reply: confirmationPrompt(next.Data), Outcome: OutcomeAdvanced}
	}
}

func (f *Flow) confirm(s State, text string) Result {
	switch {
	case f.affirm.Match(text):
		booked := s.Data
		return Result{State: Idle(), Reply: successReply(booked), Outcome: OutcomeConfirmed, Booking: &booked, FlowID: s.FlowID}
	case f.decline.Match(text):
		return Result{State: Idle(), Reply: cancelledReply, Outcome: OutcomeCancelled}
	default:
		return Result{State: s, Reply: askYesNo, Outcome: OutcomeReprompt}
	}
}

func reprompt(s State) Result {
	return Result{State: s, Reply: repeatPrompt(s.Step, s.Data), Outcome: OutcomeReprompt}
}
