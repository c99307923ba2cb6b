// Package config provides user configuration management for lorasim.
//
// The configuration is a YAML file holding registry settings per
// organization, the inventory of emulated devices and gateways, and
// application preferences. It follows OS-specific conventions for storage
// location unless overridden with SetPath:
//   - Linux: $XDG_CONFIG_HOME/lorasim/config.yaml or $HOME/.config/lorasim/config.yaml
//   - macOS: $HOME/.config/lorasim/config.yaml
//   - Windows: %LOCALAPPDATA%\lorasim\config.yaml
//
// # Security
//
// API keys are never stored. Orgs carry a credential reference (env:NAME or
// file:/path) that is resolved only when a registry call is made.
//
// # Usage Example
//
//	cfg, err := config.LoadGlobal()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rc, err := cfg.RegistryConfig("")
//	entities := cfg.Entities(rc.OrgID)
//
// Save writes atomically. The global instance uses sync.Once and file
// writes are serialized by a mutex.
package config
