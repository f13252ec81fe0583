// Package booking implements the appointment-booking dialogue as a pure state
// machine: each call takes the current State plus the user's text and returns
// the next State and the reply, leaving persistence to the caller.
package booking

// Step is the position within the linear booking sequence.
type Step string

const (
	StepIdle           Step = "idle"
	StepAskingOwner    Step = "asking_owner"
	StepAskingPet      Step = "asking_pet"
	StepAskingPhone    Step = "asking_phone"
	StepAskingDateTime Step = "asking_datetime"
	StepConfirming     Step = "confirming"
)

// Known reports whether s is one of the defined steps.
func (s Step) Known() bool {
	switch s {
	case StepIdle, StepAskingOwner, StepAskingPet, StepAskingPhone, StepAskingDateTime, StepConfirming:
		return true
	}
	return false
}

// Data holds the fields collected so far.
type Data struct {
	OwnerName         string `json:"owner_name,omitempty"`
	PetName           string `json:"pet_name,omitempty"`
	Phone             string `json:"phone,omitempty"`
	PreferredDateTime string `json:"preferred_date_time,omitempty"`
}

// IsEmpty reports whether no field has been populated.
func (d Data) IsEmpty() bool {
	return d == Data{}
}

// State is the per-session booking progress. FlowID names one pass through
// the flow so its appointment can be written at most once.
type State struct {
	Active bool   `json:"is_active"`
	Step   Step   `json:"current_step"`
	Data   Data   `json:"collected_data"`
	FlowID string `json:"flow_id,omitempty"`
}

// Idle returns the resting state: inactive, idle step, nothing collected.
func Idle() State {
	return State{Step: StepIdle}
}

// Consistent reports whether s satisfies the flow invariants: an inactive
// state is idle with no data, and an active state sits on a non-idle step.
func (s State) Consistent() bool {
	if !s.Active {
		return s.Step == StepIdle && s.Data.IsEmpty() && s.FlowID == ""
	}
	return s.Step.Known() && s.Step != StepIdle
}

// Normalize repairs a state that violates the invariants (e.g. loaded from an
// older record) by resetting it to Idle.
func (s State) Normalize() State {
	if !s.Consistent() {
		return Idle()
	}
	return s
}
