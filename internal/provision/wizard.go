package provision

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/lorasim/internal/logging"
)

// Options tunes a Wizard. Zero values select the defaults.
type Options struct {
	Workers     int
	CallTimeout time.Duration
	Observer    Observer
}

// Wizard drives one provisioning session. It owns the session State and
// performs the remote calls each step needs. All methods are safe for
// concurrent use and run one at a time.
type Wizard struct {
	mu sync.Mutex

	sessionID string
	cfg       RegistryConfig
	registry  Registry
	opts      Options
	state     State
}

// NewWizard starts a session over an inventory. Nothing is sent to the
// registry until Validate is called.
func NewWizard(reg Registry, cfg RegistryConfig, entities []Entity, opts Options) *Wizard {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	w := &Wizard{
		sessionID: uuid.NewString(),
		cfg:       cfg,
		registry:  reg,
		opts:      opts,
		state:     NewState(entities),
	}
	w.emitStep()
	return w
}

// SessionID returns the UUID identifying this session
func (w *Wizard) SessionID() string {
	return w.sessionID
}

// State returns a snapshot of the session state
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Validate runs the connection checks on the Validate step. It may be
// called repeatedly; each run replaces the previous report.
func (w *Wizard) Validate(ctx context.Context) (ValidationReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.state.require(StepValidate); err != nil {
		return ValidationReport{}, err
	}
	v := &Validator{Registry: w.registry, Timeout: w.opts.CallTimeout}
	report := v.Validate(ctx, w.cfg)

	next, err := ApplyValidation(w.state, report)
	if err != nil {
		return report, err
	}
	w.state = next
	w.emit(Event{Type: EventValidation, Validation: &report})
	w.emitStep()
	return report, nil
}

// Next advances past the current step once it has passed. Entering Discover
// runs reconciliation and entering Execute runs the registration plans.
// Leaving Discover with nothing selected returns ErrNothingSelected.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Current == StepDiscover && w.state.Selection.Len() == 0 {
		return ErrNothingSelected
	}

	next, err := Advance(w.state)
	if err != nil {
		return err
	}
	w.state = next
	w.emitStep()

	switch w.state.Current {
	case StepDiscover:
		return w.discover(ctx)
	case StepExecute:
		return w.execute(ctx)
	}
	return nil
}

// Back returns to an earlier step, discarding everything the later steps
// produced. Going back to Discover re-runs reconciliation.
func (w *Wizard) Back(ctx context.Context, to Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := Back(w.state, to)
	if err != nil {
		return err
	}
	w.state = next
	w.emitStep()

	if to == StepDiscover {
		return w.discover(ctx)
	}
	return nil
}

// Rediscover re-runs reconciliation in place on the Discover or Select step,
// replacing statuses and the selection.
func (w *Wizard) Rediscover(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state.Current {
	case StepDiscover:
	case StepSelect:
		next, err := Back(w.state, StepDiscover)
		if err != nil {
			return err
		}
		w.state = next
	default:
		return ErrWrongStep
	}
	w.state.Steps[StepDiscover] = StepActive
	w.emitStep()
	return w.discover(ctx)
}

// Toggle flips one entity's selection
func (w *Wizard) Toggle(id string) error {
	return w.apply(func(s State) (State, error) { return Toggle(s, id) }, true)
}

// SelectUnregistered resets the selection to the not-registered entities
func (w *Wizard) SelectUnregistered() error {
	return w.apply(SelectUnregistered, true)
}

// SelectNone clears the selection
func (w *Wizard) SelectNone() error {
	return w.apply(SelectNone, true)
}

// Confirm builds the registration plans and releases them for execution
func (w *Wizard) Confirm() error {
	return w.apply(func(s State) (State, error) { return Confirm(s, w.cfg) }, false)
}

// Unconfirm discards the plans built by Confirm
func (w *Wizard) Unconfirm() error {
	return w.apply(Unconfirm, false)
}

func (w *Wizard) apply(fn func(State) (State, error), selection bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := fn(w.state)
	if err != nil {
		return err
	}
	w.state = next
	if selection {
		w.emit(Event{Type: EventSelection, Selected: w.state.Selection.Selected()})
	} else {
		w.emitStep()
	}
	return nil
}

func (w *Wizard) discover(ctx context.Context) error {
	r := &Reconciler{
		Registry:    w.registry,
		Workers:     w.opts.Workers,
		CallTimeout: w.opts.CallTimeout,
		OnResolved: func(res Resolution) {
			w.emit(Event{Type: EventEntity, Resolution: &res})
		},
	}
	d := r.Reconcile(ctx, w.state.Entities, w.cfg)

	next, err := ApplyDiscovery(w.state, d)
	if err != nil {
		return err
	}
	w.state = next
	w.emit(Event{Type: EventSelection, Selected: w.state.Selection.Selected()})
	w.emitStep()
	return nil
}

func (w *Wizard) execute(ctx context.Context) error {
	x := &Executor{
		Registry:    w.registry,
		Config:      w.cfg,
		CallTimeout: w.opts.CallTimeout,
		OnOutcome: func(o Outcome) {
			logging.LogOutcome(w.sessionID, o.LocalID, o.RemoteID, o.Result.String(), o.Reason)
			w.emit(Event{Type: EventOutcome, Outcome: &o})
		},
	}
	sum := x.Execute(ctx, w.state.Plans)

	next, err := ApplySummary(w.state, sum)
	if err != nil {
		return err
	}
	w.state = next
	w.emit(Event{Type: EventSummary, Summary: sum})
	w.emitStep()
	return nil
}

func (w *Wizard) emitStep() {
	logging.LogStepTransition(w.sessionID, w.state.Current.String(), w.state.Status().String())
	w.emit(Event{Type: EventStep})
}

// emit stamps and delivers an event. Step and Status describe the current
// step at the time of the call.
func (w *Wizard) emit(e Event) {
	if w.opts.Observer == nil {
		return
	}
	e.SessionID = w.sessionID
	e.Time = time.Now()
	e.Step = w.state.Current
	e.Status = w.state.Status()
	w.opts.Observer(e)
}
