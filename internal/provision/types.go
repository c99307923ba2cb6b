package provision

import (
	"context"

	"github.com/muurk/lorasim/internal/eui"
)

// Kind distinguishes end devices from gateways.
type Kind string

const (
	KindDevice  Kind = "device"
	KindGateway Kind = "gateway"
)

// Valid reports whether k is a known entity kind
func (k Kind) Valid() bool {
	return k == KindDevice || k == KindGateway
}

// Entity is one emulated device or gateway from the local inventory.
// Entities are immutable for the duration of a provisioning run.
type Entity struct {
	LocalID     string `json:"local_id" yaml:"local_id"`
	HardwareEUI string `json:"hardware_eui" yaml:"hardware_eui"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	Kind        Kind   `json:"kind" yaml:"kind"`

	// Device-only OTAA parameters
	JoinEUI   string `json:"join_eui,omitempty" yaml:"join_eui,omitempty"`
	AppKeyRef string `json:"-" yaml:"app_key_ref,omitempty"`
}

// RemoteID derives the registry identifier for the entity.
func (e Entity) RemoteID() (string, error) {
	return eui.ForKind(string(e.Kind), e.HardwareEUI)
}

// Label returns the display name, falling back to the local ID
func (e Entity) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.LocalID
}

// RegistryConfig describes how one organization reaches the network registry.
// It is read-only to this package.
type RegistryConfig struct {
	OrgID         string
	Enabled       bool
	Cluster       string
	ApplicationID string

	// CredentialRef names where the API key lives ("env:NAME" or
	// "file:/path"). The key itself is never held in config.
	CredentialRef string

	// GatewayOwner is the registry user ID that owns registered gateways
	GatewayOwner string
}

// EntityStatus is the reconciled registry state of one entity.
type EntityStatus int

const (
	StatusUnknown EntityStatus = iota
	StatusChecking
	StatusRegistered
	StatusNotRegistered
	StatusError
)

// String returns the string representation of the status
func (s EntityStatus) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusRegistered:
		return "registered"
	case StatusNotRegistered:
		return "not_registered"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s EntityStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CredentialCategory is the structured result of a credential test.
type CredentialCategory int

const (
	// CredentialOK means the key is valid and carries the required rights
	CredentialOK CredentialCategory = iota

	// CredentialPermissionDenied means the key is valid but lacks rights
	CredentialPermissionDenied

	// CredentialInvalid means the key (or the application) was rejected
	CredentialInvalid

	// CredentialUnreachable means the registry could not be asked at all
	CredentialUnreachable
)

// String returns the string representation of the category
func (c CredentialCategory) String() string {
	switch c {
	case CredentialOK:
		return "ok"
	case CredentialPermissionDenied:
		return "permission_denied"
	case CredentialInvalid:
		return "invalid"
	case CredentialUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// CredentialCheck is returned by Registry.TestCredentials.
type CredentialCheck struct {
	Category   CredentialCategory
	Message    string
	StatusCode int
}

// OK reports whether the credential is fully usable
func (c CredentialCheck) OK() bool {
	return c.Category == CredentialOK
}

// RegistrationRequest carries everything needed to register one entity.
type RegistrationRequest struct {
	Entity         Entity
	RemoteID       string
	FrequencyPlan  string
	ActivationMode ActivationMode
}

// RegisterResult is the non-error outcome of a registration call.
type RegisterResult int

const (
	RegisterCreated RegisterResult = iota
	RegisterAlreadyExists
)

// Registry is the remote network registry as seen by the orchestrator.
// Implementations must be safe for concurrent use.
type Registry interface {
	// TestCredentials checks that the configured key is valid and has the
	// rights needed to read and write entities.
	TestCredentials(ctx context.Context, cfg RegistryConfig) CredentialCheck

	// CheckExistence reports whether an entity with remoteID exists.
	CheckExistence(ctx context.Context, kind Kind, remoteID string, cfg RegistryConfig) (bool, error)

	// Register creates the entity. An entity that already exists is reported
	// as RegisterAlreadyExists or as an error with HTTP status 409.
	Register(ctx context.Context, req RegistrationRequest, cfg RegistryConfig) (RegisterResult, error)
}
