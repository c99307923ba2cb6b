package provision

import (
	"context"
	"testing"
)

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RegistryConfig)
		cred      CredentialCheck
		want      [5]CheckStatus
		wantCalls int
		wantErr   func(error) bool
	}{
		{
			name:      "all checks pass",
			cred:      CredentialCheck{Category: CredentialOK},
			want:      [5]CheckStatus{CheckPassed, CheckPassed, CheckPassed, CheckPassed, CheckPassed},
			wantCalls: 1,
		},
		{
			name:      "integration disabled",
			mutate:    func(c *RegistryConfig) { c.Enabled = false },
			want:      [5]CheckStatus{CheckFailed, CheckPending, CheckPending, CheckPending, CheckPending},
			wantCalls: 0,
			wantErr:   IsConfigError,
		},
		{
			name:      "no cluster",
			mutate:    func(c *RegistryConfig) { c.Cluster = "" },
			want:      [5]CheckStatus{CheckPassed, CheckFailed, CheckPending, CheckPending, CheckPending},
			wantCalls: 0,
			wantErr:   IsConfigError,
		},
		{
			name:      "no application ID",
			mutate:    func(c *RegistryConfig) { c.ApplicationID = "" },
			want:      [5]CheckStatus{CheckPassed, CheckPassed, CheckFailed, CheckPending, CheckPending},
			wantCalls: 0,
			wantErr:   IsConfigError,
		},
		{
			name:      "permission denied",
			cred:      CredentialCheck{Category: CredentialPermissionDenied, Message: "missing rights", StatusCode: 403},
			want:      [5]CheckStatus{CheckPassed, CheckPassed, CheckPassed, CheckPassed, CheckFailed},
			wantCalls: 1,
			wantErr:   IsCredentialError,
		},
		{
			name:      "invalid key",
			cred:      CredentialCheck{Category: CredentialInvalid, StatusCode: 401},
			want:      [5]CheckStatus{CheckPassed, CheckPassed, CheckPassed, CheckFailed, CheckPending},
			wantCalls: 1,
			wantErr:   IsCredentialError,
		},
		{
			name:      "registry unreachable",
			cred:      CredentialCheck{Category: CredentialUnreachable, Message: "dial tcp: refused"},
			want:      [5]CheckStatus{CheckPassed, CheckPassed, CheckPassed, CheckFailed, CheckPending},
			wantCalls: 1,
			wantErr:   IsCredentialError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFakeRegistry()
			reg.cred = tt.cred
			cfg := testConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			before := cfg

			v := &Validator{Registry: reg}
			report := v.Validate(context.Background(), cfg)

			for i, want := range tt.want {
				if got := report.Checks[i].Status; got != want {
					t.Errorf("check %d (%s) = %s, want %s", i+1, CheckID(i), got, want)
				}
			}
			if reg.credCalls != tt.wantCalls {
				t.Errorf("TestCredentials calls = %d, want %d", reg.credCalls, tt.wantCalls)
			}
			if cfg != before {
				t.Error("Validate() modified the config")
			}

			if tt.wantErr == nil {
				if !report.Success() || report.Err != nil {
					t.Errorf("Success() = %v, Err = %v, want success", report.Success(), report.Err)
				}
				return
			}
			if report.Success() {
				t.Error("Success() = true, want false")
			}
			if !tt.wantErr(report.Err) {
				t.Errorf("Err = %v, wrong error type", report.Err)
			}
		})
	}
}

func TestValidator_ClusterFailureLeavesCredentialChecksPending(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialOK}
	cfg := testConfig()
	cfg.Cluster = ""

	report := (&Validator{Registry: reg}).Validate(context.Background(), cfg)

	for _, id := range []CheckID{CheckCredential, CheckPermissions} {
		if got := report.Check(id).Status; got != CheckPending {
			t.Errorf("%s = %s, want pending", id, got)
		}
	}
}

func TestValidator_Rerunnable(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialInvalid}
	v := &Validator{Registry: reg}

	if v.Validate(context.Background(), testConfig()).Success() {
		t.Fatal("first run should fail")
	}

	reg.cred = CredentialCheck{Category: CredentialOK}
	if !v.Validate(context.Background(), testConfig()).Success() {
		t.Error("second run should pass after the key is fixed")
	}
}

func TestValidator_Diagnostics(t *testing.T) {
	reg := newFakeRegistry()
	reg.cred = CredentialCheck{Category: CredentialPermissionDenied, Message: "missing RIGHT_APPLICATION_DEVICES_WRITE", StatusCode: 403}

	report := (&Validator{Registry: reg}).Validate(context.Background(), testConfig())

	want := "missing RIGHT_APPLICATION_DEVICES_WRITE (HTTP 403)"
	if got := report.Check(CheckPermissions).Diagnostic; got != want {
		t.Errorf("permissions diagnostic = %q, want %q", got, want)
	}
	if got := report.Check(CheckCluster).Diagnostic; got != "eu1" {
		t.Errorf("cluster diagnostic = %q, want eu1", got)
	}
}
