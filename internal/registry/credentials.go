package registry

import (
	"fmt"
	"os"
	"strings"
)

// Credential reference schemes
const (
	RefEnv  = "env:"
	RefFile = "file:"
)

// ResolveAPIKey loads the API key named by a credential reference.
//
//	env:LORASIM_TTS_KEY      value of an environment variable
//	file:/run/secrets/tts    first line of a file
//
// Raw keys are refused so that a key can never end up in the config file.
func ResolveAPIKey(ref string) (string, error) {
	switch {
	case ref == "":
		return "", NewCredentialError("no credential_ref configured", nil)

	case strings.HasPrefix(ref, RefEnv):
		name := strings.TrimPrefix(ref, RefEnv)
		key := strings.TrimSpace(os.Getenv(name))
		if key == "" {
			return "", NewCredentialError(fmt.Sprintf("environment variable %s is not set", name), nil)
		}
		return key, nil

	case strings.HasPrefix(ref, RefFile):
		path := strings.TrimPrefix(ref, RefFile)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", NewCredentialError(fmt.Sprintf("cannot read key file %s", path), err)
		}
		key, _, _ := strings.Cut(string(data), "\n")
		key = strings.TrimSpace(key)
		if key == "" {
			return "", NewCredentialError(fmt.Sprintf("key file %s is empty", path), nil)
		}
		return key, nil

	default:
		return "", NewCredentialError("credential_ref must start with env: or file:", nil)
	}
}

// ValidateRef checks the syntax of a credential reference without loading it
func ValidateRef(ref string) error {
	if ref == "" {
		return NewValidationError("credential_ref cannot be empty")
	}
	if !strings.HasPrefix(ref, RefEnv) && !strings.HasPrefix(ref, RefFile) {
		return NewValidationError("credential_ref must start with env: or file:")
	}
	if ref == RefEnv || ref == RefFile {
		return NewValidationError("credential_ref is missing a variable name or path")
	}
	return nil
}
