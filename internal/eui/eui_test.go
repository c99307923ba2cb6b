package eui

import (
	"fmt"
	"testing"
)

func TestDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "uppercase EUI",
			input:    "AABBCCDDEEFF0011",
			expected: "eui-aabbccddeeff0011",
		},
		{
			name:     "lowercase EUI",
			input:    "aabbccddeeff0011",
			expected: "eui-aabbccddeeff0011",
		},
		{
			name:     "mixed case EUI",
			input:    "AaBbCcDdEeFf0011",
			expected: "eui-aabbccddeeff0011",
		},
		{
			name:    "non-hex characters",
			input:   "ZZZZ",
			wantErr: true,
		},
		{
			name:    "15 characters",
			input:   "AABBCCDDEEFF001",
			wantErr: true,
		},
		{
			name:    "17 characters",
			input:   "AABBCCDDEEFF00112",
			wantErr: true,
		},
		{
			name:    "16 characters with a non-hex rune",
			input:   "AABBCCDDEEFF00G1",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "colon separated",
			input:   "AA:BB:CC:DD:EE:FF:00:11",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeviceID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DeviceID(%q) = %q, want error", tt.input, got)
				}
				if !IsFormatError(err) {
					t.Errorf("DeviceID(%q) error = %T, want *FormatError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeviceID(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("DeviceID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGatewayID(t *testing.T) {
	got, err := GatewayID("B827EBFFFE000001")
	if err != nil {
		t.Fatalf("GatewayID() error = %v", err)
	}
	if got != "gw-eui-b827ebfffe000001" {
		t.Errorf("GatewayID() = %q, want gw-eui-b827ebfffe000001", got)
	}

	if _, err := GatewayID("nope"); !IsFormatError(err) {
		t.Errorf("GatewayID(nope) error = %v, want *FormatError", err)
	}
}

func TestDeviceAndGatewayPrefixesDiffer(t *testing.T) {
	dev, _ := DeviceID("0000000000000001")
	gw, _ := GatewayID("0000000000000001")
	if dev == gw {
		t.Errorf("device and gateway IDs collide: %q", dev)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	first, err := DeviceID("AABBCCDDEEFF0022")
	if err != nil {
		t.Fatalf("DeviceID() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := DeviceID("AABBCCDDEEFF0022")
		if again != first {
			t.Fatalf("DeviceID() call %d = %q, want %q", i, again, first)
		}
	}
}

func TestDeriveIsInjective(t *testing.T) {
	seen := make(map[string]string)
	for i := 0; i < 4096; i++ {
		in := fmt.Sprintf("%016X", uint64(i)*0x9E3779B97F4A7C15)
		id, err := DeviceID(in)
		if err != nil {
			t.Fatalf("DeviceID(%q) error = %v", in, err)
		}
		if prev, ok := seen[id]; ok && prev != in {
			t.Fatalf("collision: %q and %q both map to %q", prev, in, id)
		}
		seen[id] = in
	}

	// Case variants of one EUI are the same EUI, not a collision
	a, _ := DeviceID("ABCDEF0123456789")
	b, _ := DeviceID("abcdef0123456789")
	if a != b {
		t.Errorf("case variants derived different IDs: %q vs %q", a, b)
	}
}

func TestPretty(t *testing.T) {
	if got := Pretty("aabbccddeeff0011"); got != "AA:BB:CC:DD:EE:FF:00:11" {
		t.Errorf("Pretty() = %q", got)
	}
	if got := Pretty("bad"); got != "bad" {
		t.Errorf("Pretty(bad) = %q, want input unchanged", got)
	}
}

func TestFormatError_Message(t *testing.T) {
	err := Validate("ZZZZ")
	if err == nil {
		t.Fatal("Validate(ZZZZ) should fail")
	}
	want := `invalid EUI "ZZZZ": expected 16 hex characters, got 4`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestForKind(t *testing.T) {
	tests := []struct {
		kind     string
		expected string
		wantErr  bool
	}{
		{kind: "device", expected: "eui-aabbccddeeff0011"},
		{kind: "gateway", expected: "gw-eui-aabbccddeeff0011"},
		{kind: "sensor", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := ForKind(tt.kind, "AABBCCDDEEFF0011")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForKind(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ForKind(%q) = %q, want %q", tt.kind, got, tt.expected)
			}
		})
	}
}
