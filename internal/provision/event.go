package provision

import "time"

// EventType names the kind of wizard event.
type EventType string

const (
	// EventStep reports a step status change
	EventStep EventType = "step"

	// EventValidation carries a finished validation report
	EventValidation EventType = "validation"

	// EventEntity reports one entity resolved during discovery
	EventEntity EventType = "entity"

	// EventSelection reports a change to the selection
	EventSelection EventType = "selection"

	// EventOutcome reports one finished registration
	EventOutcome EventType = "outcome"

	// EventSummary carries the final execution summary
	EventSummary EventType = "summary"
)

// Event is emitted by the Wizard on every transition and per-entity result.
type Event struct {
	SessionID string     `json:"session_id"`
	Type      EventType  `json:"type"`
	Time      time.Time  `json:"time"`
	Step      Step       `json:"step"`
	Status    StepStatus `json:"status"`

	Validation *ValidationReport `json:"validation,omitempty"`
	Resolution *Resolution       `json:"resolution,omitempty"`
	Selected   []string          `json:"selected,omitempty"`
	Outcome    *Outcome          `json:"outcome,omitempty"`
	Summary    *Summary          `json:"summary,omitempty"`
}

// Observer receives wizard events. It may be called from several goroutines
// during discovery and must not call back into the Wizard.
type Observer func(Event)

// Tee returns an Observer that hands each event to every non-nil observer
// in order. It returns nil when there are none.
func Tee(observers ...Observer) Observer {
	var live []Observer
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(e Event) {
		for _, o := range live {
			o(e)
		}
	}
}
