package provision

import "fmt"

// Step is a wizard step, in workflow order.
type Step int

const (
	StepValidate Step = iota
	StepDiscover
	StepSelect
	StepExecute
	StepComplete

	NumSteps = int(StepComplete) + 1
)

// String returns the step's short name
func (s Step) String() string {
	switch s {
	case StepValidate:
		return "validate"
	case StepDiscover:
		return "discover"
	case StepSelect:
		return "select"
	case StepExecute:
		return "execute"
	case StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("Step(%d)", s)
	}
}

// Title returns the step's display title
func (s Step) Title() string {
	switch s {
	case StepValidate:
		return "Validate connection"
	case StepDiscover:
		return "Discover inventory"
	case StepSelect:
		return "Select & confirm"
	case StepExecute:
		return "Register"
	case StepComplete:
		return "Complete"
	default:
		return s.String()
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStep parses a step name as produced by Step.String
func ParseStep(name string) (Step, error) {
	for s := StepValidate; s <= StepComplete; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// StepStatus is the state of a single wizard step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepActive
	StepPassed
	StepFailed
)

// String returns the string representation of the status
func (s StepStatus) String() string {
	switch s {
	case StepActive:
		return "active"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	default:
		return "pending"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s StepStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the complete state of one provisioning session. It is a value:
// transition functions return a new State and never modify their input.
// Maps and slices reachable from a State are treated as read-only.
type State struct {
	Current Step
	Steps   [NumSteps]StepStatus

	Entities   []Entity
	Validation *ValidationReport
	Discovery  *Discovery
	Selection  Selection

	Confirmed bool
	Plans     []*Plan
	Summary   *Summary
}

// NewState returns the initial state for an inventory: Validate is active
// and every later step is pending.
func NewState(entities []Entity) State {
	s := State{
		Current:   StepValidate,
		Entities:  entities,
		Selection: NewSelection(entities),
	}
	s.Steps[StepValidate] = StepActive
	return s
}

// Status returns the status of the current step
func (s State) Status() StepStatus {
	return s.Steps[s.Current]
}

// Terminal reports whether the workflow has completed
func (s State) Terminal() bool {
	return s.Current == StepComplete
}

// Entity looks up an inventory entity by local ID
func (s State) Entity(id string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.LocalID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// SelectedEntities returns the selected entities in inventory order
func (s State) SelectedEntities() []Entity {
	var out []Entity
	for _, e := range s.Entities {
		if s.Selection.Has(e.LocalID) {
			out = append(out, e)
		}
	}
	return out
}

func (s State) require(step Step) error {
	if s.Current != step {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStep, s.Current, step)
	}
	return nil
}

// ApplyValidation records a validator report on the Validate step. The step
// passes only if every check passed; otherwise it fails and may be retried.
func ApplyValidation(s State, r ValidationReport) (State, error) {
	if err := s.require(StepValidate); err != nil {
		return s, err
	}
	s.Validation = &r
	if r.Success() {
		s.Steps[StepValidate] = StepPassed
	} else {
		s.Steps[StepValidate] = StepFailed
	}
	return s, nil
}

// ApplyDiscovery records a reconciliation pass. Statuses and the selection
// are replaced wholesale; the selection becomes the not-registered entities.
// Discovery always passes.
func ApplyDiscovery(s State, d *Discovery) (State, error) {
	if err := s.require(StepDiscover); err != nil {
		return s, err
	}
	s.Discovery = d
	s.Selection = NewSelection(s.Entities).SelectUnregistered(d.Statuses)
	s.Steps[StepDiscover] = StepPassed
	return s, nil
}

func (s State) editable() error {
	if s.Current != StepDiscover && s.Current != StepSelect {
		return fmt.Errorf("%w: selection is fixed at %s", ErrWrongStep, s.Current)
	}
	if s.Confirmed {
		return ErrConfirmed
	}
	return nil
}

// Toggle flips one entity's membership in the selection
func Toggle(s State, id string) (State, error) {
	if err := s.editable(); err != nil {
		return s, err
	}
	sel, err := s.Selection.Toggle(id)
	if err != nil {
		return s, err
	}
	s.Selection = sel
	return s, nil
}

// SelectUnregistered resets the selection to the not-registered entities
func SelectUnregistered(s State) (State, error) {
	if err := s.editable(); err != nil {
		return s, err
	}
	var statuses map[string]EntityStatus
	if s.Discovery != nil {
		statuses = s.Discovery.Statuses
	}
	s.Selection = s.Selection.SelectUnregistered(statuses)
	return s, nil
}

// SelectNone clears the selection
func SelectNone(s State) (State, error) {
	if err := s.editable(); err != nil {
		return s, err
	}
	s.Selection = s.Selection.SelectNone()
	return s, nil
}

// Confirm builds the registration plans from the current selection and
// latches the confirmation gate, passing the Select step.
func Confirm(s State, cfg RegistryConfig) (State, error) {
	if err := s.require(StepSelect); err != nil {
		return s, err
	}
	if s.Selection.Len() == 0 {
		return s, ErrNothingSelected
	}
	s.Plans = BuildPlans(s.SelectedEntities(), cfg)
	s.Confirmed = true
	s.Steps[StepSelect] = StepPassed
	return s, nil
}

// Unconfirm releases the gate and discards the plans. A later Confirm
// rebuilds them from scratch.
func Unconfirm(s State) (State, error) {
	if err := s.require(StepSelect); err != nil {
		return s, err
	}
	s.Plans = nil
	s.Confirmed = false
	s.Steps[StepSelect] = StepActive
	return s, nil
}

// ApplySummary records the execution summary. Execute always passes; failed
// registrations are reported in the summary.
func ApplySummary(s State, sum *Summary) (State, error) {
	if err := s.require(StepExecute); err != nil {
		return s, err
	}
	s.Summary = sum
	s.Steps[StepExecute] = StepPassed
	return s, nil
}

// Advance moves from a passed step to the next one. Entering Complete
// passes it immediately and freezes the state.
func Advance(s State) (State, error) {
	if s.Terminal() {
		return s, ErrTerminal
	}
	if s.Steps[s.Current] != StepPassed {
		return s, fmt.Errorf("%w: %s is %s", ErrStepNotPassed, s.Current, s.Steps[s.Current])
	}
	s.Current++
	if s.Current == StepComplete {
		s.Steps[StepComplete] = StepPassed
	} else {
		s.Steps[s.Current] = StepActive
	}
	return s, nil
}

// Back returns to an earlier step. That step becomes active, every later
// step becomes pending, and artifacts owned by those steps are dropped.
func Back(s State, to Step) (State, error) {
	if s.Terminal() {
		return s, ErrTerminal
	}
	if to < StepValidate || to >= s.Current {
		return s, fmt.Errorf("%w: cannot go back from %s to %s", ErrWrongStep, s.Current, to)
	}

	for st := to; st <= StepComplete; st++ {
		s.Steps[st] = StepPending
	}
	s.Steps[to] = StepActive
	s.Current = to

	// Everything from Select onwards is forward-only
	s.Plans = nil
	s.Confirmed = false
	s.Summary = nil
	if to <= StepDiscover {
		s.Discovery = nil
		s.Selection = NewSelection(s.Entities)
	}
	if to == StepValidate {
		s.Validation = nil
	}
	return s, nil
}
