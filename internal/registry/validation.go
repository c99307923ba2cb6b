package registry

import (
	"fmt"
	"regexp"

	"github.com/muurk/lorasim/internal/eui"
	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/urls"
)

// idPattern matches registry identifiers: lowercase alphanumerics separated
// by single dashes, 3 to 36 characters.
var idPattern = regexp.MustCompile(`^[a-z0-9](?:-?[a-z0-9]){2,35}$`)

// ValidateID validates a registry identifier (application, user, device).
func ValidateID(field, id string) error {
	if id == "" {
		return NewValidationError(fmt.Sprintf("%s cannot be empty", field))
	}
	if !idPattern.MatchString(id) {
		return NewValidationError(fmt.Sprintf("%s %q must be 3-36 lowercase letters, digits or single dashes", field, id))
	}
	return nil
}

// ValidateCluster validates a cluster name. Unknown clusters are accepted
// only when a base URL override is in use.
func ValidateCluster(cluster string, hasOverride bool) error {
	if cluster == "" {
		return NewValidationError("cluster cannot be empty")
	}
	if !urls.KnownCluster(cluster) && !hasOverride {
		return NewValidationError(fmt.Sprintf("unknown cluster %q (known: %v)", cluster, urls.Clusters))
	}
	return nil
}

// ValidateConfig validates a complete registry configuration.
// Returns a slice of validation errors (empty if valid).
func ValidateConfig(cfg provision.RegistryConfig, hasOverride bool) []error {
	var errs []error

	if err := ValidateCluster(cfg.Cluster, hasOverride); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateID("application_id", cfg.ApplicationID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateRef(cfg.CredentialRef); err != nil {
		errs = append(errs, err)
	}
	if cfg.GatewayOwner != "" {
		if err := ValidateID("gateway_owner", cfg.GatewayOwner); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// ValidateEntity validates an inventory entity before it is stored.
func ValidateEntity(e provision.Entity) []error {
	var errs []error

	if e.LocalID == "" {
		errs = append(errs, NewValidationError("local_id cannot be empty"))
	}
	if !e.Kind.Valid() {
		errs = append(errs, NewValidationError(fmt.Sprintf("kind must be device or gateway, got %q", e.Kind)))
	}
	if err := eui.Validate(e.HardwareEUI); err != nil {
		errs = append(errs, fmt.Errorf("hardware_eui: %w", err))
	}
	if e.JoinEUI != "" {
		if e.Kind == provision.KindGateway {
			errs = append(errs, NewValidationError("join_eui only applies to devices"))
		} else if err := eui.Validate(e.JoinEUI); err != nil {
			errs = append(errs, fmt.Errorf("join_eui: %w", err))
		}
	}
	if e.AppKeyRef != "" {
		if err := ValidateRef(e.AppKeyRef); err != nil {
			errs = append(errs, fmt.Errorf("app_key_ref: %w", err))
		}
	}

	return errs
}
