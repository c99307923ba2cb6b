package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/lorasim/internal/provision"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Config represents the entire user configuration file.
// It stores registry settings per organization, the inventory of emulated
// entities and application preferences.
type Config struct {
	Version     int             `yaml:"version"`
	Orgs        map[string]*Org `yaml:"orgs,omitempty"` // Keyed by org ID
	Inventory   []*Entity       `yaml:"inventory,omitempty"`
	Preferences *Preferences    `yaml:"preferences,omitempty"`

	path string
}

// Org holds the registry settings for one organization.
// Note: API keys are NEVER stored - only a reference to where the key lives.
type Org struct {
	Enabled       bool   `yaml:"enabled"`
	Cluster       string `yaml:"cluster"`                 // eu1, nam1 or au1
	ApplicationID string `yaml:"application_id"`          // Registry application for devices
	CredentialRef string `yaml:"credential_ref"`          // env:NAME or file:/path
	GatewayOwner  string `yaml:"gateway_owner,omitempty"` // Registry user owning gateways
	BaseURL       string `yaml:"base_url,omitempty"`      // Private deployment override
}

// Entity is one emulated device or gateway in the inventory.
type Entity struct {
	LocalID     string `yaml:"local_id"`
	HardwareEUI string `yaml:"hardware_eui"`
	DisplayName string `yaml:"display_name,omitempty"`
	Kind        string `yaml:"kind"`
	JoinEUI     string `yaml:"join_eui,omitempty"`
	AppKeyRef   string `yaml:"app_key_ref,omitempty"`
	Org         string `yaml:"org,omitempty"` // Empty means every org
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultOrg      string `yaml:"default_org,omitempty"`
	Workers         int    `yaml:"workers"`          // Concurrent existence checks
	CallTimeout     int    `yaml:"call_timeout"`     // Per registry call, in seconds
	DiscoverTimeout int    `yaml:"discover_timeout"` // mDNS scan, in seconds
}

func defaultPreferences() *Preferences {
	return &Preferences{
		Workers:         provision.DefaultWorkers,
		CallTimeout:     int(provision.DefaultCallTimeout / time.Second),
		DiscoverTimeout: 5,
	}
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version:     CurrentVersion,
		Orgs:        make(map[string]*Org),
		Preferences: defaultPreferences(),
	}
}

// Path returns the file this config was loaded from or will be saved to
func (c *Config) Path() string {
	return c.path
}

// OrgIDs returns the configured org IDs in sorted order
func (c *Config) OrgIDs() []string {
	ids := make([]string, 0, len(c.Orgs))
	for id := range c.Orgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveOrg picks the org to use: the given ID, else the default org, else
// the only configured org.
func (c *Config) ResolveOrg(orgID string) (string, error) {
	if orgID == "" && c.Preferences != nil {
		orgID = c.Preferences.DefaultOrg
	}
	if orgID == "" {
		switch len(c.Orgs) {
		case 0:
			return "", fmt.Errorf("no organizations configured (run: lorasim-provision config set <org> cluster eu1)")
		case 1:
			return c.OrgIDs()[0], nil
		default:
			return "", fmt.Errorf("several organizations configured (%s); pick one with --org", strings.Join(c.OrgIDs(), ", "))
		}
	}
	if _, ok := c.Orgs[orgID]; !ok {
		return "", fmt.Errorf("unknown organization %q", orgID)
	}
	return orgID, nil
}

// RegistryConfig returns the provisioning view of an org's settings.
func (c *Config) RegistryConfig(orgID string) (provision.RegistryConfig, error) {
	id, err := c.ResolveOrg(orgID)
	if err != nil {
		return provision.RegistryConfig{}, err
	}
	o := c.Orgs[id]
	return provision.RegistryConfig{
		OrgID:         id,
		Enabled:       o.Enabled,
		Cluster:       o.Cluster,
		ApplicationID: o.ApplicationID,
		CredentialRef: o.CredentialRef,
		GatewayOwner:  o.GatewayOwner,
	}, nil
}

// EnsureOrg ensures an org entry exists, creating a disabled one if needed.
func (c *Config) EnsureOrg(orgID string) *Org {
	if c.Orgs == nil {
		c.Orgs = make(map[string]*Org)
	}
	if o, ok := c.Orgs[orgID]; ok {
		return o
	}
	o := &Org{}
	c.Orgs[orgID] = o
	return o
}

// OrgKeys lists the keys accepted by SetOrgField
var OrgKeys = []string{"enabled", "cluster", "application_id", "credential_ref", "gateway_owner", "base_url"}

// SetOrgField sets one org setting from its string form.
func (c *Config) SetOrgField(orgID, key, value string) error {
	o := c.EnsureOrg(orgID)
	switch key {
	case "enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("enabled must be true or false: %w", err)
		}
		o.Enabled = b
	case "cluster":
		o.Cluster = value
	case "application_id":
		o.ApplicationID = value
	case "credential_ref":
		o.CredentialRef = value
	case "gateway_owner":
		o.GatewayOwner = value
	case "base_url":
		o.BaseURL = strings.TrimRight(value, "/")
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(OrgKeys, ", "))
	}
	return nil
}

// PreferenceKeys lists the keys accepted by SetPreference
var PreferenceKeys = []string{"default_org", "workers", "call_timeout", "discover_timeout"}

// SetPreference sets one preference from its string form.
func (c *Config) SetPreference(key, value string) error {
	if c.Preferences == nil {
		c.Preferences = defaultPreferences()
	}
	p := c.Preferences

	positive := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "default_org":
		p.DefaultOrg = value
	case "workers":
		p.Workers, err = positive()
	case "call_timeout":
		p.CallTimeout, err = positive()
	case "discover_timeout":
		p.DiscoverTimeout, err = positive()
	default:
		err = fmt.Errorf("unknown preference %q (valid: %s)", key, strings.Join(PreferenceKeys, ", "))
	}
	return err
}

// CallTimeoutDuration returns the per-call registry timeout
func (c *Config) CallTimeoutDuration() time.Duration {
	if c.Preferences == nil || c.Preferences.CallTimeout <= 0 {
		return provision.DefaultCallTimeout
	}
	return time.Duration(c.Preferences.CallTimeout) * time.Second
}

// DiscoverTimeoutDuration returns the mDNS scan duration
func (c *Config) DiscoverTimeoutDuration() time.Duration {
	if c.Preferences == nil || c.Preferences.DiscoverTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Preferences.DiscoverTimeout) * time.Second
}

// Workers returns the discovery worker count
func (c *Config) Workers() int {
	if c.Preferences == nil || c.Preferences.Workers <= 0 {
		return provision.DefaultWorkers
	}
	return c.Preferences.Workers
}

// ToProvision converts an inventory entry to the provisioning type
func (e *Entity) ToProvision() provision.Entity {
	return provision.Entity{
		LocalID:     e.LocalID,
		HardwareEUI: e.HardwareEUI,
		DisplayName: e.DisplayName,
		Kind:        provision.Kind(e.Kind),
		JoinEUI:     e.JoinEUI,
		AppKeyRef:   e.AppKeyRef,
	}
}

// Entities returns the inventory visible to an org, in file order.
func (c *Config) Entities(orgID string) []provision.Entity {
	var out []provision.Entity
	for _, e := range c.Inventory {
		if e.Org == "" || e.Org == orgID {
			out = append(out, e.ToProvision())
		}
	}
	return out
}

// FindEntity returns the inventory entry with the given local ID, or nil
func (c *Config) FindEntity(localID string) *Entity {
	for _, e := range c.Inventory {
		if e.LocalID == localID {
			return e
		}
	}
	return nil
}

// AddEntity appends an entity. Local IDs and EUIs must be unique per kind.
func (c *Config) AddEntity(e *Entity) error {
	if c.FindEntity(e.LocalID) != nil {
		return fmt.Errorf("entity %q already exists", e.LocalID)
	}
	for _, existing := range c.Inventory {
		if existing.Kind == e.Kind && strings.EqualFold(existing.HardwareEUI, e.HardwareEUI) {
			return fmt.Errorf("%s EUI %s is already used by %q", e.Kind, e.HardwareEUI, existing.LocalID)
		}
	}
	c.Inventory = append(c.Inventory, e)
	return nil
}

// RemoveEntity deletes an entity by local ID. Returns false if not found.
func (c *Config) RemoveEntity(localID string) bool {
	for i, e := range c.Inventory {
		if e.LocalID == localID {
			c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
			return true
		}
	}
	return false
}
