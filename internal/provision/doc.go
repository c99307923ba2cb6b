// Package provision implements the provisioning orchestrator: the workflow
// that takes emulated LoRaWAN devices and gateways from the local inventory
// into a network registry.
//
// # Workflow
//
// A session moves through five steps:
//
//	Validate -> Discover -> Select -> Execute -> Complete
//
// Validate runs five ordered connection checks (enabled, cluster,
// application ID, API key, permissions) and stops at the first failure.
// Discover reconciles every inventory entity against the registry with a
// bounded worker pool and pre-selects the ones not yet registered. Select
// lets the operator adjust that set and then confirm, which builds one
// registration plan per entity kind. Execute runs the plans: devices one at
// a time, gateways as a batch. Complete is terminal.
//
// # State And Effects
//
// State is a plain value and the transition functions (ApplyValidation,
// ApplyDiscovery, Toggle, Confirm, Advance, Back, ...) are pure: they return
// a new State and never perform I/O. Wizard owns one State and performs the
// remote calls each step needs:
//
//	w := provision.NewWizard(reg, cfg, entities, provision.Options{})
//	if _, err := w.Validate(ctx); err != nil { ... }
//	_ = w.Next(ctx) // Discover
//	_ = w.Next(ctx) // Select
//	_ = w.Confirm()
//	_ = w.Next(ctx) // Execute
//	sum := w.State().Summary
//
// # Failure Handling
//
// Only configuration and credential problems block the workflow, and only at
// Validate. Everything else is entity-scoped: a malformed EUI rejects that
// entity from the plan, a failed existence check marks it "error", and a
// failed registration is recorded in the Summary while the run continues.
// An entity that already exists in the registry is a success.
//
// Failure reasons start with a category derived from the HTTP status when
// one is available: conflict, unauthorized, forbidden, not-found,
// rate-limited, server-error, timeout, network or unknown.
package provision
