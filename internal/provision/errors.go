package provision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType is the category of a provisioning error
type ErrorType int

const (
	// ErrTypeFormat indicates a malformed hardware identifier
	ErrTypeFormat ErrorType = iota
	// ErrTypeConfig indicates missing or invalid registry configuration
	ErrTypeConfig
	// ErrTypeCredential indicates an invalid or under-privileged API key
	ErrTypeCredential
	// ErrTypeTransport indicates a network or remote service failure
	ErrTypeTransport
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeFormat:
		return "Format Error"
	case ErrTypeConfig:
		return "Configuration Error"
	case ErrTypeCredential:
		return "Credential Error"
	case ErrTypeTransport:
		return "Transport Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a classified provisioning failure.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
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

// HTTPStatus returns the HTTP status that caused the error, or 0
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *Error {
	return &Error{Type: ErrTypeConfig, Message: message}
}

// NewCredentialError creates a credential error
func NewCredentialError(message string, statusCode int) *Error {
	return &Error{Type: ErrTypeCredential, Message: message, StatusCode: statusCode}
}

// NewTransportError creates a transport error
func NewTransportError(message string, err error) *Error {
	return &Error{Type: ErrTypeTransport, Message: message, Err: err}
}

func isType(err error, t ErrorType) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == t
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return isType(err, ErrTypeConfig)
}

// IsCredentialError checks if an error is a credential error
func IsCredentialError(err error) bool {
	return isType(err, ErrTypeCredential)
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	return isType(err, ErrTypeTransport)
}

var (
	// ErrUnknownEntity is returned when a selection names an entity that is
	// not in the inventory.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrNothingSelected blocks leaving discovery with an empty selection.
	ErrNothingSelected = errors.New("no entities selected")

	// ErrAlreadyExists may be returned by a Registry to report a conflict
	// without an HTTP status.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrStepNotPassed is returned when advancing from an unfinished step.
	ErrStepNotPassed = errors.New("current step has not passed")

	// ErrWrongStep is returned when an action does not apply to the current step.
	ErrWrongStep = errors.New("action not valid for the current step")

	// ErrTerminal is returned for any transition out of the Complete step.
	ErrTerminal = errors.New("wizard is complete")

	// ErrConfirmed is returned when the selection is edited after confirmation.
	ErrConfirmed = errors.New("selection is confirmed; unconfirm to change it")
)

// Failure reason categories. A reason string always starts with one of these.
const (
	ReasonConflict     = "conflict"
	ReasonUnauthorized = "unauthorized"
	ReasonForbidden    = "forbidden"
	ReasonNotFound     = "not-found"
	ReasonRateLimited  = "rate-limited"
	ReasonServerError  = "server-error"
	ReasonTimeout      = "timeout"
	ReasonNetwork      = "network"
	ReasonUnknown      = "unknown"
)

type httpStatuser interface {
	HTTPStatus() int
}

type timeouter interface {
	Timeout() bool
}

// StatusOf extracts an HTTP status from anywhere in err's chain, or 0.
func StatusOf(err error) int {
	var hs httpStatuser
	if errors.As(err, &hs) {
		return hs.HTTPStatus()
	}
	return 0
}

// IsTimeout reports whether err is a deadline or timeout failure
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var to timeouter
	return errors.As(err, &to) && to.Timeout()
}

// ReasonCategory maps an error to its failure category.
func ReasonCategory(err error) string {
	if IsTimeout(err) {
		return ReasonTimeout
	}
	switch code := StatusOf(err); {
	case code == http.StatusConflict:
		return ReasonConflict
	case code == http.StatusUnauthorized:
		return ReasonUnauthorized
	case code == http.StatusForbidden:
		return ReasonForbidden
	case code == http.StatusNotFound:
		return ReasonNotFound
	case code == http.StatusTooManyRequests:
		return ReasonRateLimited
	case code >= 500:
		return ReasonServerError
	case code != 0:
		return ReasonUnknown
	}
	var netErr net.Error
	if errors.As(err, &netErr) || IsTransportError(err) {
		return ReasonNetwork
	}
	return ReasonUnknown
}

// FailureReason renders err as "<category>: <detail>". Timeouts are reported
// as the bare category.
func FailureReason(err error) string {
	category := ReasonCategory(err)
	if category == ReasonTimeout || err == nil {
		return category
	}
	if code := StatusOf(err); code != 0 && category == ReasonUnknown {
		return fmt.Sprintf("%s: HTTP %d: %v", category, code, err)
	}
	return fmt.Sprintf("%s: %v", category, err)
}
