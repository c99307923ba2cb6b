package eui

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Length is the number of hex characters in a well-formed EUI-64
	Length = 16

	// DevicePrefix is prepended to the lowercase EUI to form a device ID
	DevicePrefix = "eui-"

	// GatewayPrefix is prepended to the lowercase EUI to form a gateway ID
	GatewayPrefix = "gw-eui-"
)

// FormatError reports a malformed hardware identifier.
type FormatError struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid EUI %q: %s", e.Input, e.Reason)
}

// IsFormatError reports whether err is or wraps a *FormatError
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Validate checks that s is exactly 16 hexadecimal characters.
func Validate(s string) error {
	if len(s) != Length {
		return &FormatError{Input: s, Reason: fmt.Sprintf("expected %d hex characters, got %d", Length, len(s))}
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return &FormatError{Input: s, Reason: fmt.Sprintf("non-hex character %q at position %d", s[i], i)}
		}
	}
	return nil
}

// Normalize validates s and returns it in lowercase.
func Normalize(s string) (string, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}

// DeviceID returns the registry device ID for a device EUI.
func DeviceID(s string) (string, error) {
	n, err := Normalize(s)
	if err != nil {
		return "", err
	}
	return DevicePrefix + n, nil
}

// GatewayID returns the registry gateway ID for a gateway EUI.
func GatewayID(s string) (string, error) {
	n, err := Normalize(s)
	if err != nil {
		return "", err
	}
	return GatewayPrefix + n, nil
}

// ForKind derives the ID for an entity kind ("device" or "gateway").
func ForKind(kind, s string) (string, error) {
	switch kind {
	case "device":
		return DeviceID(s)
	case "gateway":
		return GatewayID(s)
	default:
		return "", &FormatError{Input: s, Reason: fmt.Sprintf("unknown entity kind %q", kind)}
	}
}

// Pretty formats a well-formed EUI as uppercase colon-separated octets
// (AA:BB:CC:DD:EE:FF:00:11). Malformed input is returned unchanged.
func Pretty(s string) string {
	if Validate(s) != nil {
		return s
	}
	u := strings.ToUpper(s)
	parts := make([]string, 0, Length/2)
	for i := 0; i < Length; i += 2 {
		parts = append(parts, u[i:i+2])
	}
	return strings.Join(parts, ":")
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
