package provision

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(t EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func twoDevices() []Entity {
	return []Entity{
		device("dev-1", "AABBCCDDEEFF0011"),
		device("dev-2", "AABBCCDDEEFF0022"),
	}
}

func mustNext(t *testing.T, w *Wizard) {
	t.Helper()
	if err := w.Next(context.Background()); err != nil {
		t.Fatalf("Next() at %s error = %v", w.State().Current, err)
	}
}

func TestWizard_EndToEnd(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}
	log := &eventLog{}

	w := NewWizard(reg, testConfig(), twoDevices(), Options{Observer: log.observe})
	ctx := context.Background()

	report, err := w.Validate(ctx)
	if err != nil || !report.Success() {
		t.Fatalf("Validate() = %v, %v; want success", report.Success(), err)
	}

	mustNext(t, w) // discover
	st := w.State()
	if got := st.Selection.Selected(); !reflect.DeepEqual(got, []string{"dev-1", "dev-2"}) {
		t.Fatalf("selection = %v, want both devices", got)
	}

	mustNext(t, w) // select
	if err := w.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	plans := w.State().Plans
	if len(plans) != 1 || plans[0].ActivationMode != ActivationOTAA || plans[0].Batched {
		t.Fatalf("plans = %+v, want one unbatched OTAA plan", plans)
	}

	mustNext(t, w) // execute
	sum := w.State().Summary
	if sum == nil || sum.Created != 2 || sum.AlreadyExists != 0 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want {2 0 0}", sum)
	}

	mustNext(t, w) // complete
	if !w.State().Terminal() {
		t.Error("wizard should be complete")
	}
	if err := w.Next(ctx); !errors.Is(err, ErrTerminal) {
		t.Errorf("Next() after complete error = %v, want ErrTerminal", err)
	}

	if log.count(EventOutcome) != 2 || log.count(EventSummary) != 1 || log.count(EventEntity) != 2 {
		t.Errorf("events: %d outcome, %d summary, %d entity", log.count(EventOutcome), log.count(EventSummary), log.count(EventEntity))
	}
	for _, e := range log.events {
		if e.SessionID != w.SessionID() {
			t.Fatalf("event session = %q, want %q", e.SessionID, w.SessionID())
		}
	}
}

func TestWizard_ConflictScenario(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}
	reg.existing["eui-aabbccddeeff0022"] = true

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	ctx := context.Background()

	if _, err := w.Validate(ctx); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	mustNext(t, w)

	if got := w.State().Selection.Selected(); !reflect.DeepEqual(got, []string{"dev-1"}) {
		t.Fatalf("default selection = %v, want [dev-1]", got)
	}
	if err := w.Toggle("dev-2"); err != nil {
		t.Fatalf("Toggle(dev-2) error = %v", err)
	}

	mustNext(t, w)
	if err := w.Confirm(); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	mustNext(t, w)

	sum := w.State().Summary
	want := []OutcomeResult{ResultCreated, ResultAlreadyExists}
	for i, o := range sum.Results {
		if o.Result != want[i] {
			t.Errorf("%s = %s, want %s", o.LocalID, o.Result, want[i])
		}
	}
	if sum.Failed != 0 {
		t.Errorf("Failed = %d, want 0", sum.Failed)
	}
}

func TestWizard_ValidateBlocks(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialPermissionDenied, StatusCode: 403}

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	report, err := w.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !IsCredentialError(report.Err) {
		t.Errorf("report.Err = %v, want credential error", report.Err)
	}
	if w.State().Steps[StepValidate] != StepFailed {
		t.Errorf("validate = %s, want failed", w.State().Steps[StepValidate])
	}
	if err := w.Next(context.Background()); !errors.Is(err, ErrStepNotPassed) {
		t.Errorf("Next() error = %v, want ErrStepNotPassed", err)
	}
	if reg.existCalls != 0 {
		t.Error("discovery should not run before validation passes")
	}
}

func TestWizard_NothingSelected(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}
	reg.existing["eui-aabbccddeeff0011"] = true
	reg.existing["eui-aabbccddeeff0022"] = true

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	_, _ = w.Validate(context.Background())
	mustNext(t, w)

	if st := w.State(); st.Steps[StepDiscover] != StepPassed {
		t.Errorf("discover = %s, want passed", st.Steps[StepDiscover])
	}
	if err := w.Next(context.Background()); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("Next() error = %v, want ErrNothingSelected", err)
	}
	if w.State().Current != StepDiscover {
		t.Errorf("current = %s, want discover", w.State().Current)
	}
}

func TestWizard_ExecuteAlwaysPasses(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}
	reg.registerErr["eui-aabbccddeeff0011"] = &statusError{code: 403}

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	_, _ = w.Validate(context.Background())
	mustNext(t, w)
	mustNext(t, w)
	_ = w.Confirm()
	mustNext(t, w)

	st := w.State()
	if st.Steps[StepExecute] != StepPassed {
		t.Errorf("execute = %s, want passed", st.Steps[StepExecute])
	}
	if st.Summary.Failed != 1 || st.Summary.Created != 1 {
		t.Errorf("summary = %+v, want 1 created, 1 failed", st.Summary)
	}
}

func TestWizard_BackToDiscoverRerunsReconciliation(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	ctx := context.Background()
	_, _ = w.Validate(ctx)
	mustNext(t, w)
	mustNext(t, w)
	_ = w.Confirm()

	reg.mu.Lock()
	reg.existing["eui-aabbccddeeff0011"] = true
	reg.mu.Unlock()

	if err := w.Back(ctx, StepDiscover); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	st := w.State()
	if st.Plans != nil || st.Confirmed {
		t.Error("Back should discard the plan")
	}
	if reg.existCalls != 4 {
		t.Errorf("existence calls = %d, want 4 (two passes)", reg.existCalls)
	}
	if st.Discovery.Statuses["dev-1"] != StatusRegistered {
		t.Errorf("dev-1 = %s, want registered after re-check", st.Discovery.Statuses["dev-1"])
	}
	if got := st.Selection.Selected(); !reflect.DeepEqual(got, []string{"dev-2"}) {
		t.Errorf("selection = %v, want [dev-2]", got)
	}
}

func TestWizard_Rediscover(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}

	w := NewWizard(reg, testConfig(), twoDevices(), Options{})
	_, _ = w.Validate(context.Background())
	mustNext(t, w)

	if err := w.Rediscover(context.Background()); err != nil {
		t.Fatalf("Rediscover() error = %v", err)
	}
	if reg.existCalls != 4 {
		t.Errorf("existence calls = %d, want 4", reg.existCalls)
	}
	if w.State().Steps[StepDiscover] != StepPassed {
		t.Error("discover should pass again")
	}
}

func TestWizard_ZeroEntities(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}

	w := NewWizard(reg, testConfig(), nil, Options{})
	_, _ = w.Validate(context.Background())
	mustNext(t, w)

	if reg.existCalls != 0 {
		t.Errorf("existence calls = %d, want 0", reg.existCalls)
	}
	if w.State().Steps[StepDiscover] != StepPassed {
		t.Error("discover should complete immediately")
	}
}

func TestWizard_SessionIDsAreUnique(t *testing.T) {
	a := NewWizard(newFakeRegistry(), testConfig(), nil, Options{})
	b := NewWizard(newFakeRegistry(), testConfig(), nil, Options{})
	if a.SessionID() == b.SessionID() || a.SessionID() == "" {
		t.Errorf("session IDs %q and %q should be distinct", a.SessionID(), b.SessionID())
	}
}
