package config

import (
	"testing"

	"github.com/muurk/lorasim/internal/provision"
)

func testConfig() *Config {
	cfg := NewConfig()
	cfg.Orgs["acme"] = &Org{Enabled: true, Cluster: "eu1", ApplicationID: "app", CredentialRef: "env:K", GatewayOwner: "ops"}
	cfg.Inventory = []*Entity{
		{LocalID: "a", HardwareEUI: "0000000000000001", Kind: "device"},
		{LocalID: "b", HardwareEUI: "0000000000000002", Kind: "gateway", Org: "other"},
		{LocalID: "c", HardwareEUI: "0000000000000003", Kind: "device", Org: "acme", AppKeyRef: "env:APPKEY"},
	}
	return cfg
}

func TestResolveOrg(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Config)
		org     string
		want    string
		wantErr bool
	}{
		{"single org implied", nil, "", "acme", false},
		{"explicit org", nil, "acme", "acme", false},
		{"unknown org", nil, "nope", "", true},
		{"default org", func(c *Config) {
			c.Orgs["zeta"] = &Org{}
			c.Preferences.DefaultOrg = "zeta"
		}, "", "zeta", false},
		{"ambiguous", func(c *Config) { c.Orgs["zeta"] = &Org{} }, "", "", true},
		{"none configured", func(c *Config) { c.Orgs = map[string]*Org{} }, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig()
			if tt.setup != nil {
				tt.setup(c)
			}
			got, err := c.ResolveOrg(tt.org)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveOrg(%q) error = %v, wantErr %v", tt.org, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveOrg(%q) = %v, want %v", tt.org, got, tt.want)
			}
		})
	}
}

func TestRegistryConfig(t *testing.T) {
	rc, err := testConfig().RegistryConfig("")
	if err != nil {
		t.Fatalf("RegistryConfig() error = %v", err)
	}
	want := provision.RegistryConfig{
		OrgID: "acme", Enabled: true, Cluster: "eu1",
		ApplicationID: "app", CredentialRef: "env:K", GatewayOwner: "ops",
	}
	if rc != want {
		t.Errorf("RegistryConfig() = %+v, want %+v", rc, want)
	}
}

func TestEntitiesFiltersByOrg(t *testing.T) {
	got := testConfig().Entities("acme")
	if len(got) != 2 {
		t.Fatalf("Entities(acme) returned %d, want 2", len(got))
	}
	if got[0].LocalID != "a" || got[1].LocalID != "c" {
		t.Errorf("Entities(acme) order = %v, %v; want a, c", got[0].LocalID, got[1].LocalID)
	}
	if got[1].Kind != provision.KindDevice || got[1].AppKeyRef != "env:APPKEY" {
		t.Errorf("entity not converted: %+v", got[1])
	}
}

func TestAddRemoveEntity(t *testing.T) {
	cfg := testConfig()

	if err := cfg.AddEntity(&Entity{LocalID: "a", HardwareEUI: "00000000000000FF", Kind: "device"}); err == nil {
		t.Error("duplicate local ID should be rejected")
	}
	if err := cfg.AddEntity(&Entity{LocalID: "d", HardwareEUI: "0000000000000001", Kind: "device"}); err == nil {
		t.Error("duplicate device EUI should be rejected")
	}
	if err := cfg.AddEntity(&Entity{LocalID: "d", HardwareEUI: "0000000000000001", Kind: "gateway"}); err != nil {
		t.Errorf("same EUI on a different kind should be allowed: %v", err)
	}

	if !cfg.RemoveEntity("d") {
		t.Error("RemoveEntity(d) = false, want true")
	}
	if cfg.RemoveEntity("d") {
		t.Error("second RemoveEntity(d) = true, want false")
	}
	if cfg.FindEntity("d") != nil {
		t.Error("entity should be gone")
	}
}

func TestSetOrgFieldAndPreference(t *testing.T) {
	cfg := NewConfig()

	if err := cfg.SetOrgField("x", "enabled", "yes"); err == nil {
		t.Error("enabled=yes should fail to parse")
	}
	if err := cfg.SetOrgField("x", "enabled", "true"); err != nil || !cfg.Orgs["x"].Enabled {
		t.Errorf("enabled=true not applied: %v", err)
	}
	if err := cfg.SetOrgField("x", "base_url", "https://tts.local/"); err != nil || cfg.Orgs["x"].BaseURL != "https://tts.local" {
		t.Errorf("base_url = %q, want trailing slash trimmed", cfg.Orgs["x"].BaseURL)
	}
	if err := cfg.SetOrgField("x", "bogus", "1"); err == nil {
		t.Error("unknown key should fail")
	}

	if err := cfg.SetPreference("workers", "0"); err == nil {
		t.Error("workers=0 should fail")
	}
	if err := cfg.SetPreference("workers", "9"); err != nil || cfg.Workers() != 9 {
		t.Errorf("Workers() = %v, want 9 (err %v)", cfg.Workers(), err)
	}
}
