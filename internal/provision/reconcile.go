package provision

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers bounds concurrent existence checks
	DefaultWorkers = 4

	// DefaultCallTimeout bounds each remote call
	DefaultCallTimeout = 15 * time.Second
)

// Resolution is the reconciled state of one entity.
type Resolution struct {
	LocalID  string       `json:"local_id"`
	RemoteID string       `json:"remote_id,omitempty"`
	Status   EntityStatus `json:"status"`
	Err      error        `json:"-"`
}

// Discovery is the result of one reconciliation pass.
type Discovery struct {
	// Statuses holds one entry per inventory entity
	Statuses map[string]EntityStatus

	// RemoteIDs holds the derived ID for every entity whose EUI is valid
	RemoteIDs map[string]string

	// Diagnostics holds the failure reason for entities in StatusError
	Diagnostics map[string]string
}

// Count returns how many entities have the given status
func (d *Discovery) Count(status EntityStatus) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Statuses {
		if s == status {
			n++
		}
	}
	return n
}

// Reconciler compares the local inventory with the remote registry.
type Reconciler struct {
	Registry Registry

	// Workers bounds concurrent existence checks; DefaultWorkers if zero
	Workers int

	// CallTimeout bounds each existence check; DefaultCallTimeout if zero
	CallTimeout time.Duration

	// OnResolved, if set, is called once per entity as it resolves. It may be
	// called from several goroutines at once.
	OnResolved func(Resolution)
}

// Reconcile checks every entity against the registry and returns a fresh
// status for each. Each entity's status depends only on its own lookup, so
// the result does not depend on scheduling order. Zero entities make no
// remote calls.
func (r *Reconciler) Reconcile(ctx context.Context, entities []Entity, cfg RegistryConfig) *Discovery {
	d := &Discovery{
		Statuses:    make(map[string]EntityStatus, len(entities)),
		RemoteIDs:   make(map[string]string, len(entities)),
		Diagnostics: make(map[string]string),
	}
	if len(entities) == 0 {
		return d
	}

	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	// One slot per entity; each goroutine writes only its own index
	results := make([]Resolution, len(entities))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			results[i] = r.resolve(ctx, e, cfg)
			if r.OnResolved != nil {
				r.OnResolved(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		d.Statuses[res.LocalID] = res.Status
		if res.RemoteID != "" {
			d.RemoteIDs[res.LocalID] = res.RemoteID
		}
		if res.Err != nil {
			d.Diagnostics[res.LocalID] = res.Err.Error()
		}
	}
	return d
}

func (r *Reconciler) resolve(ctx context.Context, e Entity, cfg RegistryConfig) Resolution {
	res := Resolution{LocalID: e.LocalID}

	remoteID, err := e.RemoteID()
	if err != nil {
		res.Status = StatusError
		res.Err = err
		return res
	}
	res.RemoteID = remoteID

	timeout := r.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	exists, err := r.Registry.CheckExistence(callCtx, e.Kind, remoteID, cfg)
	switch {
	case err != nil:
		res.Status = StatusError
		res.Err = err
	case exists:
		res.Status = StatusRegistered
	default:
		res.Status = StatusNotRegistered
	}
	return res
}

// DefaultSelection returns the IDs of not-registered entities in inventory
// order.
func DefaultSelection(entities []Entity, statuses map[string]EntityStatus) []string {
	var ids []string
	for _, e := range entities {
		if statuses[e.LocalID] == StatusNotRegistered {
			ids = append(ids, e.LocalID)
		}
	}
	return ids
}
