package registry

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/muurk/lorasim/internal/urls"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the registry rejected the API key (401)
	ErrTypeAuth
	// ErrTypeForbidden indicates the API key lacks rights (403)
	ErrTypeForbidden
	// ErrTypeConflict indicates the entity already exists (409)
	ErrTypeConflict
	// ErrTypeHTTP indicates any other non-2xx response
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
	// ErrTypeValidation indicates a request that cannot be sent as configured
	ErrTypeValidation
	// ErrTypeCredential indicates the API key could not be resolved locally
	ErrTypeCredential
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the registry refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeForbidden:
		return "Permission Error"
	case ErrTypeConflict:
		return "Conflict"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeCredential:
		return "Credential Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failed registry call
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Host           string              // Registry host (for context)
	Retryable      bool                // Whether the error is retryable
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the response status, or 0 for transport failures
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// Timeout reports whether the call timed out
func (e *Error) Timeout() bool {
	return e.Type == ErrTypeTimeout
}

// ClassifyNetworkError analyzes a transport error and returns a more
// specific error type
func ClassifyNetworkError(err error, host string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Host:           host,
			Retryable:      false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &Error{
				Type:           ErrTypeConnectionRefused,
				Message:        "Registry refused connection",
				Err:            err,
				NetworkSubtype: NetworkErrorConnectionRefused,
				Host:           host,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Host unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorHostUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
		if errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &Error{
				Type:           ErrTypeNetwork,
				Message:        "Network unreachable",
				Err:            err,
				NetworkSubtype: NetworkErrorNetworkUnreachable,
				Host:           host,
				Retryable:      true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		// Recursively classify the underlying error
		classified := ClassifyNetworkError(urlErr.Err, host)
		classified.Err = err
		return classified
	}

	return &Error{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Host:           host,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewStatusError creates an error for a non-2xx response. 401, 403 and 409
// get their own types; 5xx and 429 are retryable.
func NewStatusError(statusCode int, message string) *Error {
	e := &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500 || statusCode == http.StatusTooManyRequests,
	}
	switch statusCode {
	case http.StatusUnauthorized:
		e.Type = ErrTypeAuth
	case http.StatusForbidden:
		e.Type = ErrTypeForbidden
	case http.StatusConflict:
		e.Type = ErrTypeConflict
	}
	return e
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

// NewCredentialError creates an error for an unresolvable credential reference
func NewCredentialError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeCredential,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

func asError(err error) (*Error, bool) {
	var re *Error
	ok := errors.As(err, &re)
	return re, ok
}

// IsNetworkError checks if an error is a network error (including timeout,
// connection refused, DNS)
func IsNetworkError(err error) bool {
	if re, ok := asError(err); ok {
		return re.Type == ErrTypeNetwork ||
			re.Type == ErrTypeTimeout ||
			re.Type == ErrTypeConnectionRefused ||
			re.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	re, ok := asError(err)
	return ok && re.Type == ErrTypeAuth
}

// IsForbidden checks if an error is a permission error
func IsForbidden(err error) bool {
	re, ok := asError(err)
	return ok && re.Type == ErrTypeForbidden
}

// IsConflict checks if an error reports an entity that already exists
func IsConflict(err error) bool {
	re, ok := asError(err)
	return ok && re.Type == ErrTypeConflict
}

// IsNotFound checks if an error is a 404 response
func IsNotFound(err error) bool {
	re, ok := asError(err)
	return ok && re.StatusCode == http.StatusNotFound
}

// IsCredentialError checks if an error is a credential resolution error
func IsCredentialError(err error) bool {
	re, ok := asError(err)
	return ok && re.Type == ErrTypeCredential
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if re, ok := asError(err); ok {
		return re.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	re, ok := asError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch re.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The registry did not respond in time.",
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Try again with a longer --timeout",
			"  • Check the cluster status page for outages",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The registry refused the connection.",
			"Troubleshooting:",
			"  • Verify the cluster name in your config (eu1, nam1, au1)",
			"  • If you use a private deployment, check its base URL",
			"  • A proxy or firewall may be blocking HTTPS",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the registry hostname.",
			"Troubleshooting:",
			"  • Check the cluster name for typos",
			"  • Check your network DNS settings",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"The registry rejected the API key.",
			"Troubleshooting:",
			"  • Check that the key has not been revoked or expired",
			"  • Make sure the key belongs to the configured cluster",
			"  • Create a new key: " + urls.APIKeysGuide,
		}, "\n")

	case ErrTypeForbidden:
		return strings.Join([]string{
			"The API key is valid but lacks the required rights.",
			"Troubleshooting:",
			"  • Grant RIGHT_APPLICATION_DEVICES_READ and RIGHT_APPLICATION_DEVICES_WRITE",
			"  • Gateway registration also needs RIGHT_USER_GATEWAYS_CREATE on the owner",
			"  • See " + urls.APIKeysGuide,
		}, "\n")

	case ErrTypeCredential:
		return strings.Join([]string{
			"The API key could not be loaded.",
			"Troubleshooting:",
			"  • credential_ref must be env:NAME or file:/path",
			"  • Check that the environment variable is exported",
			"  • Check that the key file exists and is readable",
		}, "\n")

	case ErrTypeConflict:
		return "The entity is already registered. Nothing needs to be done."

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch re.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The registry is not reachable.",
				"Troubleshooting:",
				"  • Check your internet connection",
				"  • A VPN or proxy may be required")

		case NetworkErrorNetworkUnreachable:
			hint = append(hint, "Your computer has no route to the registry.",
				"Troubleshooting:",
				"  • Check your network adapter settings")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Try again in a few minutes")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		if re.StatusCode >= 500 {
			return strings.Join([]string{
				fmt.Sprintf("The registry returned an error (HTTP %d).", re.StatusCode),
				"This is a server-side problem.",
				"Troubleshooting:",
				"  • Try again in a few minutes",
				"  • Check the cluster status page",
			}, "\n")
		}
		if re.StatusCode == http.StatusTooManyRequests {
			return "The registry is rate limiting requests. Wait a minute and re-run provisioning."
		}
		if re.StatusCode == http.StatusNotFound {
			return "The application or entity was not found. Check the application ID in your config."
		}
		return fmt.Sprintf("The registry returned HTTP error %d. Check the request parameters.", re.StatusCode)

	case ErrTypeParse:
		return "Failed to parse the registry response. The API may have changed."

	case ErrTypeValidation:
		return "The configuration is incomplete. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	re, ok := asError(err)
	if !ok {
		return err.Error()
	}

	switch re.Type {
	case ErrTypeTimeout:
		return "Registry not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Registry refused connection"
	case ErrTypeDNS:
		return "Cannot resolve registry hostname"
	case ErrTypeAuth:
		return "API key rejected"
	case ErrTypeForbidden:
		return "API key lacks required rights"
	case ErrTypeConflict:
		return "Already registered"
	case ErrTypeCredential:
		return "API key not available - check credential_ref"
	case ErrTypeNetwork:
		return "Registry unreachable - check network connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Registry error (HTTP %d)", re.StatusCode)
	case ErrTypeParse:
		return "Invalid response from registry"
	case ErrTypeValidation:
		return re.Message
	default:
		return re.Message
	}
}
