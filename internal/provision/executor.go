package provision

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// OutcomeResult is the result of registering one entity.
type OutcomeResult int

const (
	ResultCreated OutcomeResult = iota
	ResultAlreadyExists
	ResultFailed
)

// String returns the string representation of the result
func (r OutcomeResult) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// MarshalText implements encoding.TextMarshaler
func (r OutcomeResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome is the registration outcome for one entity.
type Outcome struct {
	LocalID    string        `json:"local_id"`
	RemoteID   string        `json:"remote_id"`
	Kind       Kind          `json:"kind"`
	Result     OutcomeResult `json:"result"`
	Reason     string        `json:"reason,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
}

// Succeeded reports whether the entity now exists in the registry
func (o Outcome) Succeeded() bool {
	return o.Result != ResultFailed
}

// Summary aggregates the outcomes of one execution. Counters always equal
// the tallies of Results.
type Summary struct {
	Created       int       `json:"created"`
	AlreadyExists int       `json:"already_exists"`
	Failed        int       `json:"failed"`
	Results       []Outcome `json:"results"`
}

// NewSummary builds a summary whose counters are derived from results
func NewSummary(results []Outcome) *Summary {
	s := &Summary{Results: results}
	for _, o := range results {
		switch o.Result {
		case ResultCreated:
			s.Created++
		case ResultAlreadyExists:
			s.AlreadyExists++
		default:
			s.Failed++
		}
	}
	return s
}

// Total returns the number of attempted registrations
func (s *Summary) Total() int {
	return len(s.Results)
}

// Executor runs registration plans against a registry.
type Executor struct {
	Registry Registry
	Config   RegistryConfig

	// CallTimeout bounds each registration call; DefaultCallTimeout if zero
	CallTimeout time.Duration

	// OnOutcome, if set, is called once per target as it completes.
	// Calls are serialised.
	OnOutcome func(Outcome)

	mu sync.Mutex
}

// Execute registers every target of every plan and returns the summary.
// A failing target never stops the run. Results are ordered by plan, then
// by target order within the plan, regardless of batching.
func (x *Executor) Execute(ctx context.Context, plans []*Plan) *Summary {
	var results []Outcome
	for _, p := range plans {
		if p.Batched {
			results = append(results, x.runBatched(ctx, p)...)
		} else {
			results = append(results, x.runSequential(ctx, p)...)
		}
	}
	return NewSummary(results)
}

func (x *Executor) runSequential(ctx context.Context, p *Plan) []Outcome {
	out := make([]Outcome, len(p.Targets))
	for i, t := range p.Targets {
		out[i] = x.register(ctx, p, t)
	}
	return out
}

func (x *Executor) runBatched(ctx context.Context, p *Plan) []Outcome {
	out := make([]Outcome, len(p.Targets))
	var g errgroup.Group
	for i, t := range p.Targets {
		i, t := i, t
		g.Go(func() error {
			out[i] = x.register(ctx, p, t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (x *Executor) register(ctx context.Context, p *Plan, t Target) Outcome {
	o := Outcome{LocalID: t.Entity.LocalID, RemoteID: t.RemoteID, Kind: p.Kind}

	timeout := x.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := RegistrationRequest{
		Entity:         t.Entity,
		RemoteID:       t.RemoteID,
		FrequencyPlan:  p.FrequencyPlan,
		ActivationMode: p.ActivationMode,
	}
	res, err := x.Registry.Register(callCtx, req, x.Config)

	switch {
	case err == nil && res == RegisterAlreadyExists:
		o.Result = ResultAlreadyExists
	case err == nil:
		o.Result = ResultCreated
	case errors.Is(err, ErrAlreadyExists) || StatusOf(err) == http.StatusConflict:
		o.Result = ResultAlreadyExists
		o.StatusCode = StatusOf(err)
	default:
		o.Result = ResultFailed
		o.Reason = FailureReason(err)
		o.StatusCode = StatusOf(err)
	}

	if x.OnOutcome != nil {
		x.mu.Lock()
		x.OnOutcome(o)
		x.mu.Unlock()
	}
	return o
}
