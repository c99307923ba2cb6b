package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAPIKey(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("NNSXS.FROMFILE\nsecond line\n"), 0600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LORASIM_TEST_KEY", " NNSXS.FROMENV ")

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "env", ref: "env:LORASIM_TEST_KEY", want: "NNSXS.FROMENV"},
		{name: "file", ref: "file:" + keyFile, want: "NNSXS.FROMFILE"},
		{name: "unset env", ref: "env:LORASIM_TEST_UNSET", wantErr: true},
		{name: "missing file", ref: "file:" + filepath.Join(dir, "nope"), wantErr: true},
		{name: "empty file", ref: "file:" + emptyFile, wantErr: true},
		{name: "raw key", ref: "NNSXS.RAW", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAPIKey(tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveAPIKey(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if tt.wantErr && !IsCredentialError(err) {
				t.Errorf("error = %v, want credential error", err)
			}
			if got != tt.want {
				t.Errorf("ResolveAPIKey(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestValidateRef(t *testing.T) {
	valid := []string{"env:KEY", "file:/run/secrets/key"}
	invalid := []string{"", "env:", "file:", "NNSXS.RAW", "vault:kv/tts"}

	for _, ref := range valid {
		if err := ValidateRef(ref); err != nil {
			t.Errorf("ValidateRef(%q) error = %v", ref, err)
		}
	}
	for _, ref := range invalid {
		if err := ValidateRef(ref); err == nil {
			t.Errorf("ValidateRef(%q) should fail", ref)
		}
	}
}
