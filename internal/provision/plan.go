package provision

import "github.com/muurk/lorasim/internal/eui"

// ActivationMode is how a device obtains its session keys.
type ActivationMode string

const (
	// ActivationNone is used for gateways
	ActivationNone ActivationMode = ""

	// ActivationOTAA is over-the-air activation
	ActivationOTAA ActivationMode = "OTAA"
)

// DefaultFrequencyPlan is used for clusters missing from the lookup table.
const DefaultFrequencyPlan = "EU_863_870_TTN"

var frequencyPlans = map[string]string{
	"eu1":  "EU_863_870_TTN",
	"nam1": "US_902_928_FSB_2",
	"au1":  "AU_915_928_FSB_2",
}

// FrequencyPlanFor returns the regional frequency plan for a cluster.
// Unknown clusters fall back to DefaultFrequencyPlan.
func FrequencyPlanFor(cluster string) string {
	if fp, ok := frequencyPlans[cluster]; ok {
		return fp
	}
	return DefaultFrequencyPlan
}

// Target is one entity scheduled for registration.
type Target struct {
	Entity   Entity
	RemoteID string
}

// Rejection is an entity left out of a plan because its EUI is malformed.
type Rejection struct {
	Entity Entity
	Err    *eui.FormatError
}

// Plan is the registration plan for one entity kind. A built plan is never
// modified.
type Plan struct {
	Kind           Kind
	Targets        []Target
	FrequencyPlan  string
	ActivationMode ActivationMode

	// Batched plans submit every registration without waiting for the
	// previous one; unbatched plans go strictly one at a time.
	Batched bool

	Rejected []Rejection
}

// TargetIDs returns the local IDs of the plan's targets in order
func (p *Plan) TargetIDs() []string {
	ids := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		ids[i] = t.Entity.LocalID
	}
	return ids
}

// BuildPlans derives one plan per entity kind present in selected, devices
// first. Devices register sequentially with OTAA; gateways are batched. An
// entity with a malformed EUI is recorded in Rejected and skipped without
// affecting the rest of its plan.
func BuildPlans(selected []Entity, cfg RegistryConfig) []*Plan {
	fp := FrequencyPlanFor(cfg.Cluster)
	devices := &Plan{Kind: KindDevice, FrequencyPlan: fp, ActivationMode: ActivationOTAA}
	gateways := &Plan{Kind: KindGateway, FrequencyPlan: fp, ActivationMode: ActivationNone, Batched: true}

	for _, e := range selected {
		plan := devices
		if e.Kind == KindGateway {
			plan = gateways
		}
		remoteID, err := e.RemoteID()
		if err != nil {
			fe, _ := err.(*eui.FormatError)
			plan.Rejected = append(plan.Rejected, Rejection{Entity: e, Err: fe})
			continue
		}
		plan.Targets = append(plan.Targets, Target{Entity: e, RemoteID: remoteID})
	}

	var plans []*Plan
	for _, p := range []*Plan{devices, gateways} {
		if len(p.Targets) > 0 || len(p.Rejected) > 0 {
			plans = append(plans, p)
		}
	}
	return plans
}
