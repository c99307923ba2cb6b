package provision

import (
	"context"
	"fmt"
	"time"
)

// CheckID identifies one of the five connection checks, in execution order.
type CheckID int

const (
	CheckEnabled CheckID = iota
	CheckCluster
	CheckApplication
	CheckCredential
	CheckPermissions

	numChecks
)

// String returns the check's human-readable name
func (c CheckID) String() string {
	switch c {
	case CheckEnabled:
		return "Integration enabled"
	case CheckCluster:
		return "Cluster selected"
	case CheckApplication:
		return "Application ID set"
	case CheckCredential:
		return "API key valid"
	case CheckPermissions:
		return "Required permissions"
	default:
		return fmt.Sprintf("CheckID(%d)", c)
	}
}

// CheckStatus is the state of a single connection check.
type CheckStatus int

const (
	CheckPending CheckStatus = iota
	CheckPassed
	CheckFailed
)

// String returns the string representation of the status
func (s CheckStatus) String() string {
	switch s {
	case CheckPassed:
		return "passed"
	case CheckFailed:
		return "failed"
	default:
		return "pending"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Check is the result of one connection check.
type Check struct {
	ID         CheckID     `json:"-"`
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Diagnostic string      `json:"diagnostic,omitempty"`
}

// ValidationReport is the outcome of one validator run.
type ValidationReport struct {
	Checks []Check `json:"checks"`

	// Err is the blocking *Error (config or credential), nil on success
	Err error `json:"-"`
}

// Success reports whether every check passed
func (r ValidationReport) Success() bool {
	if len(r.Checks) != int(numChecks) {
		return false
	}
	for _, c := range r.Checks {
		if c.Status != CheckPassed {
			return false
		}
	}
	return true
}

// Check returns the check with the given ID
func (r ValidationReport) Check(id CheckID) Check {
	if int(id) < len(r.Checks) {
		return r.Checks[id]
	}
	return Check{ID: id, Name: id.String()}
}

// Validator runs the ordered connection checks against a registry.
type Validator struct {
	Registry Registry

	// Timeout bounds the credential test call. Zero means no extra bound.
	Timeout time.Duration
}

// Validate runs all checks left to right, stopping at the first failure.
// Checks after a failure stay pending. cfg is never modified, and the call
// may be repeated freely.
func (v *Validator) Validate(ctx context.Context, cfg RegistryConfig) ValidationReport {
	report := ValidationReport{Checks: make([]Check, numChecks)}
	for i := range report.Checks {
		id := CheckID(i)
		report.Checks[i] = Check{ID: id, Name: id.String()}
	}

	pass := func(id CheckID, diag string) {
		report.Checks[id].Status = CheckPassed
		report.Checks[id].Diagnostic = diag
	}
	fail := func(id CheckID, diag string, err error) ValidationReport {
		report.Checks[id].Status = CheckFailed
		report.Checks[id].Diagnostic = diag
		report.Err = err
		return report
	}

	if !cfg.Enabled {
		return fail(CheckEnabled, "registry integration is disabled", NewConfigError("registry integration is disabled"))
	}
	pass(CheckEnabled, "enabled")

	if cfg.Cluster == "" {
		return fail(CheckCluster, "no cluster selected", NewConfigError("no cluster selected"))
	}
	pass(CheckCluster, cfg.Cluster)

	if cfg.ApplicationID == "" {
		return fail(CheckApplication, "no application ID set", NewConfigError("no application ID set"))
	}
	pass(CheckApplication, cfg.ApplicationID)

	callCtx := ctx
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	result := v.Registry.TestCredentials(callCtx, cfg)

	switch result.Category {
	case CredentialOK:
		pass(CheckCredential, "API key accepted")
		pass(CheckPermissions, "devices read/write granted")
		return report
	case CredentialPermissionDenied:
		pass(CheckCredential, "API key accepted")
		return fail(CheckPermissions, diagnostic(result, "API key lacks required rights"),
			NewCredentialError(diagnostic(result, "permission denied"), result.StatusCode))
	case CredentialUnreachable:
		return fail(CheckCredential, diagnostic(result, "registry unreachable"),
			NewCredentialError(diagnostic(result, "registry unreachable"), result.StatusCode))
	default:
		return fail(CheckCredential, diagnostic(result, "API key rejected"),
			NewCredentialError(diagnostic(result, "API key rejected"), result.StatusCode))
	}
}

func diagnostic(c CredentialCheck, fallback string) string {
	msg := c.Message
	if msg == "" {
		msg = fallback
	}
	if c.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", msg, c.StatusCode)
	}
	return msg
}
