package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "lorasim"
	configFile = "config.yaml"
)

var (
	// Global config instance (loaded lazily)
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigErr  error

	// Set by SetPath, takes precedence over the OS default
	pathOverride string

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/lorasim or $HOME/.config/lorasim
//   - macOS: $HOME/.config/lorasim
//   - Windows: %LOCALAPPDATA%\lorasim
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file,
// honouring SetPath.
func GetConfigPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// SetPath overrides the config file location for the global instance.
// Must be called before the first LoadGlobal.
func SetPath(path string) {
	pathOverride = path
}

// Load reads a config file. A missing file yields a new default config
// bound to that path. An empty path means GetConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := NewConfig()
		cfg.path = path
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if cfg.Orgs == nil {
		cfg.Orgs = make(map[string]*Org)
	}
	if cfg.Preferences == nil {
		cfg.Preferences = defaultPreferences()
	}
	for i, e := range cfg.Inventory {
		if e == nil {
			return nil, fmt.Errorf("inventory entry %d is empty", i)
		}
	}
	cfg.path = path
	return &cfg, nil
}

// LoadGlobal loads the process-wide config once.
func LoadGlobal() (*Config, error) {
	globalConfigOnce.Do(func() {
		globalConfig, globalConfigErr = Load("")
	})
	return globalConfig, globalConfigErr
}

// ReloadGlobal discards the in-memory global config and reads it again.
func ReloadGlobal() (*Config, error) {
	fileMutex.Lock()
	globalConfigOnce = sync.Once{}
	fileMutex.Unlock()
	return LoadGlobal()
}

// Save writes the config back to the path it was loaded from.
// The write is atomic: a temp file is written and renamed over the target.
func (c *Config) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	path := c.path
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# lorasim configuration file
# Registry settings per organization and the emulated entity inventory.
#
# Security Note: API keys are NEVER stored in this file. credential_ref
# and app_key_ref point at an environment variable (env:NAME) or a file
# (file:/path) holding the secret.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	c.path = path
	return nil
}

// CreateDefaultConfig writes an example config to path and returns it.
// It refuses to overwrite an existing file.
func CreateDefaultConfig(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("config file already exists: %s", path)
	}

	cfg := NewConfig()
	cfg.path = path
	cfg.Preferences.DefaultOrg = "example"
	cfg.Orgs["example"] = &Org{
		Enabled:       false,
		Cluster:       "eu1",
		ApplicationID: "lorasim-app",
		CredentialRef: "env:LORASIM_API_KEY",
		GatewayOwner:  "example-user",
	}
	cfg.Inventory = []*Entity{
		{LocalID: "sensor-1", HardwareEUI: "70B3D57ED0000001", DisplayName: "Example Sensor", Kind: "device", AppKeyRef: "env:LORASIM_APP_KEY"},
		{LocalID: "gw-1", HardwareEUI: "B827EBFFFE000001", DisplayName: "Example Gateway", Kind: "gateway"},
	}

	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}
