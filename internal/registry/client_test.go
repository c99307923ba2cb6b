package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/lorasim/internal/provision"
)

const testKey = "NNSXS.TESTKEY"

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClientWithURL(server.URL)
	client.RetryDelay = time.Millisecond
	client.MaxRetryDelay = 5 * time.Millisecond
	client.ResolveKey = func(ref string) (string, error) {
		if ref == "env:MISSING" {
			return "", NewCredentialError("environment variable MISSING is not set", nil)
		}
		return testKey, nil
	}
	return client, server
}

func testCfg() provision.RegistryConfig {
	return provision.RegistryConfig{
		Enabled:       true,
		Cluster:       "eu1",
		ApplicationID: "app-1",
		CredentialRef: "env:TTS_KEY",
		GatewayOwner:  "owner-1",
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client.BaseURL != "" {
		t.Errorf("BaseURL = %q, want empty", client.BaseURL)
	}
	if got := client.baseURL(testCfg()); got != "https://eu1.cloud.thethings.network" {
		t.Errorf("baseURL() = %q", got)
	}
	if client.HTTPClient == nil || client.MaxRetries != DefaultMaxRetries {
		t.Error("defaults not applied")
	}
}

func TestNewClientWithURL(t *testing.T) {
	client := NewClientWithURL("http://localhost:1885/")
	if got := client.baseURL(testCfg()); got != "http://localhost:1885" {
		t.Errorf("baseURL() = %q, want override without trailing slash", got)
	}
}

func TestSetTimeoutAndRetry(t *testing.T) {
	client := NewClient()
	client.SetTimeout(5 * time.Second)
	client.SetRetry(5, 2*time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
	if client.MaxRetries != 5 || client.RetryDelay != 2*time.Second {
		t.Errorf("retry = %d/%v, want 5/2s", client.MaxRetries, client.RetryDelay)
	}
}

func TestTestCredentials(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		ref          string
		wantCategory provision.CredentialCategory
	}{
		{
			name:         "all rights",
			status:       http.StatusOK,
			body:         `{"rights":["RIGHT_APPLICATION_DEVICES_READ","RIGHT_APPLICATION_DEVICES_WRITE","RIGHT_APPLICATION_INFO"]}`,
			wantCategory: provision.CredentialOK,
		},
		{
			name:         "application all",
			status:       http.StatusOK,
			body:         `{"rights":["RIGHT_APPLICATION_ALL"]}`,
			wantCategory: provision.CredentialOK,
		},
		{
			name:         "missing write right",
			status:       http.StatusOK,
			body:         `{"rights":["RIGHT_APPLICATION_DEVICES_READ"]}`,
			wantCategory: provision.CredentialPermissionDenied,
		},
		{
			name:         "forbidden",
			status:       http.StatusForbidden,
			body:         `{"code":7,"message":"error:pkg/auth/rights:no_application_rights"}`,
			wantCategory: provision.CredentialPermissionDenied,
		},
		{
			name:         "unauthorized",
			status:       http.StatusUnauthorized,
			body:         `{"code":16,"message":"error:pkg/auth:token_not_found"}`,
			wantCategory: provision.CredentialInvalid,
		},
		{
			name:         "application not found",
			status:       http.StatusNotFound,
			wantCategory: provision.CredentialInvalid,
		},
		{
			name:         "server error",
			status:       http.StatusBadGateway,
			wantCategory: provision.CredentialUnreachable,
		},
		{
			name:         "key not resolvable",
			status:       http.StatusOK,
			ref:          "env:MISSING",
			wantCategory: provision.CredentialInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v3/applications/app-1/rights" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer "+testKey {
					t.Errorf("Authorization = %q", got)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			client.MaxRetries = 0

			cfg := testCfg()
			if tt.ref != "" {
				cfg.CredentialRef = tt.ref
			}
			got := client.TestCredentials(context.Background(), cfg)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %s, want %s (message %q)", got.Category, tt.wantCategory, got.Message)
			}
		})
	}
}

func TestTestCredentials_Unreachable(t *testing.T) {
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {})
	client.MaxRetries = 0
	server.Close()

	got := client.TestCredentials(context.Background(), testCfg())
	if got.Category != provision.CredentialUnreachable {
		t.Errorf("Category = %s, want unreachable", got.Category)
	}
}

func TestCheckExistence(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/applications/app-1/devices/eui-0000000000000001":
			_, _ = io.WriteString(w, `{"ids":{"device_id":"eui-0000000000000001"}}`)
		case "/api/v3/gateways/gw-eui-00000000000000a1":
			_, _ = io.WriteString(w, `{"ids":{"gateway_id":"gw-eui-00000000000000a1"}}`)
		case "/api/v3/applications/app-1/devices/eui-0000000000000003":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tests := []struct {
		name     string
		kind     provision.Kind
		remoteID string
		want     bool
		wantErr  bool
	}{
		{"device exists", provision.KindDevice, "eui-0000000000000001", true, false},
		{"device missing", provision.KindDevice, "eui-0000000000000002", false, false},
		{"gateway exists", provision.KindGateway, "gw-eui-00000000000000a1", true, false},
		{"gateway missing", provision.KindGateway, "gw-eui-00000000000000a2", false, false},
		{"forbidden", provision.KindDevice, "eui-0000000000000003", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.CheckExistence(context.Background(), tt.kind, tt.remoteID, testCfg())
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckExistence() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CheckExistence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func deviceRequest(appKeyRef string) provision.RegistrationRequest {
	return provision.RegistrationRequest{
		Entity: provision.Entity{
			LocalID:     "dev-1",
			HardwareEUI: "aabbccddeeff0011",
			DisplayName: "Soil sensor",
			Kind:        provision.KindDevice,
			JoinEUI:     "70b3d57ed0000000",
			AppKeyRef:   appKeyRef,
		},
		RemoteID:       "eui-aabbccddeeff0011",
		FrequencyPlan:  "EU_863_870_TTN",
		ActivationMode: provision.ActivationOTAA,
	}
}

func TestRegister_Device(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	var created SetEndDeviceRequest

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&created)
		}
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := client.Register(context.Background(), deviceRequest("env:APP_KEY"), testCfg())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res != provision.RegisterCreated {
		t.Errorf("Register() = %v, want created", res)
	}

	want := []string{
		"POST /api/v3/applications/app-1/devices",
		"PUT /api/v3/ns/applications/app-1/devices/eui-aabbccddeeff0011",
		"PUT /api/v3/js/applications/app-1/devices/eui-aabbccddeeff0011",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	ids := created.EndDevice.IDs
	if ids.DeviceID != "eui-aabbccddeeff0011" || ids.DevEUI != "AABBCCDDEEFF0011" || ids.JoinEUI != "70B3D57ED0000000" {
		t.Errorf("created ids = %+v", ids)
	}
	if created.EndDevice.NetworkServerAddress != "eu1.cloud.thethings.network" {
		t.Errorf("network_server_address = %q", created.EndDevice.NetworkServerAddress)
	}
}

func TestRegister_DeviceWithoutAppKey(t *testing.T) {
	var calls int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if strings.Contains(r.URL.Path, "/js/") {
			t.Error("join server should not be called without an AppKey")
		}
		_, _ = io.WriteString(w, `{}`)
	})

	if _, err := client.Register(context.Background(), deviceRequest(""), testCfg()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRegister_Conflict(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"code":6,"message":"error:pkg/identityserver/store:id_taken"}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := client.Register(context.Background(), deviceRequest("env:APP_KEY"), testCfg())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if res != provision.RegisterAlreadyExists {
		t.Errorf("Register() = %v, want already exists", res)
	}

	want := []string{
		"POST /api/v3/applications/app-1/devices",
		"PUT /api/v3/ns/applications/app-1/devices/eui-aabbccddeeff0011",
		"PUT /api/v3/js/applications/app-1/devices/eui-aabbccddeeff0011",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestRegister_CompletesPartialDevice(t *testing.T) {
	var mu sync.Mutex
	created := false
	nsBroken := true
	var nsPuts int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodPost && created:
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"code":6,"message":"id_taken"}`)
		case r.Method == http.MethodPost:
			created = true
			_, _ = io.WriteString(w, `{}`)
		case strings.HasPrefix(r.URL.Path, "/api/v3/ns/"):
			nsPuts++
			if nsBroken {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"code":3,"message":"invalid frequency plan"}`)
				return
			}
			_, _ = io.WriteString(w, `{}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	})

	req := deviceRequest("")
	if _, err := client.Register(context.Background(), req, testCfg()); err == nil {
		t.Fatal("first Register() should fail on the network server step")
	}

	mu.Lock()
	nsBroken = false
	mu.Unlock()

	res, err := client.Register(context.Background(), req, testCfg())
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
	if res != provision.RegisterAlreadyExists {
		t.Errorf("second Register() = %v, want already exists", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if nsPuts != 2 {
		t.Errorf("network server PUTs = %d, want 2", nsPuts)
	}
}

func TestRegister_MissingAppKey(t *testing.T) {
	var hits int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{}`)
	})

	res, err := client.Register(context.Background(), deviceRequest("env:MISSING"), testCfg())
	if err == nil {
		t.Fatalf("Register() = %v, want an error", res)
	}
	var re *Error
	if !errors.As(err, &re) || re.Type != ErrTypeCredential {
		t.Errorf("error = %v, want credential error", err)
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("requests = %d, want none", n)
	}
}

func TestRegister_Gateway(t *testing.T) {
	var got CreateGatewayRequest
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/users/owner-1/gateways" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{}`)
	})

	req := provision.RegistrationRequest{
		Entity:        provision.Entity{LocalID: "gw-1", HardwareEUI: "b827ebfffe000001", Kind: provision.KindGateway},
		RemoteID:      "gw-eui-b827ebfffe000001",
		FrequencyPlan: "EU_863_870_TTN",
	}
	if _, err := client.Register(context.Background(), req, testCfg()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got.Gateway.IDs.GatewayID != "gw-eui-b827ebfffe000001" || got.Gateway.IDs.EUI != "B827EBFFFE000001" {
		t.Errorf("gateway ids = %+v", got.Gateway.IDs)
	}
	if got.Gateway.FrequencyPlanID != "EU_863_870_TTN" {
		t.Errorf("frequency_plan_id = %q", got.Gateway.FrequencyPlanID)
	}
}

func TestRegister_GatewayWithoutOwner(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	cfg := testCfg()
	cfg.GatewayOwner = ""

	req := provision.RegistrationRequest{
		Entity:   provision.Entity{LocalID: "gw-1", HardwareEUI: "b827ebfffe000001", Kind: provision.KindGateway},
		RemoteID: "gw-eui-b827ebfffe000001",
	}
	_, err := client.Register(context.Background(), req, cfg)
	var re *Error
	if !errors.As(err, &re) || re.Type != ErrTypeValidation {
		t.Errorf("Register() error = %v, want validation error", err)
	}
}

func TestRetry_ServerErrors(t *testing.T) {
	var attempts int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	})

	exists, err := client.CheckExistence(context.Background(), provision.KindGateway, "gw-eui-00000000000000a1", testCfg())
	if err != nil || !exists {
		t.Fatalf("CheckExistence() = %v, %v; want true after retries", exists, err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_NeverOn4xx(t *testing.T) {
	var attempts int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Register(context.Background(), deviceRequest(""), testCfg())
	if !IsForbidden(err) {
		t.Errorf("Register() error = %v, want forbidden", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if provision.StatusOf(err) != http.StatusForbidden {
		t.Errorf("StatusOf() = %d, want 403", provision.StatusOf(err))
	}
}

func TestRetry_GivesUp(t *testing.T) {
	var attempts int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	client.MaxRetries = 2

	_, err := client.CheckExistence(context.Background(), provision.KindDevice, "eui-0000000000000001", testCfg())
	if err == nil {
		t.Fatal("CheckExistence() should fail")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", attempts)
	}
	if got := provision.ReasonCategory(err); got != provision.ReasonServerError {
		t.Errorf("ReasonCategory() = %q, want server-error", got)
	}
}

func TestContextTimeout(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client.MaxRetries = 0

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.CheckExistence(ctx, provision.KindDevice, "eui-0000000000000001", testCfg())
	if !provision.IsTimeout(err) {
		t.Errorf("error = %v, want timeout", err)
	}
	if got := provision.FailureReason(err); got != "timeout" {
		t.Errorf("FailureReason() = %q, want timeout", got)
	}
}

func TestContextTimeout_DuringRetries(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client.RetryDelay = 200 * time.Millisecond
	client.MaxRetryDelay = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := client.Register(ctx, deviceRequest(""), testCfg())
	if !provision.IsTimeout(err) {
		t.Errorf("error = %v, want timeout", err)
	}
	if got := provision.FailureReason(err); got != "timeout" {
		t.Errorf("FailureReason() = %q, want timeout", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"registry error", `{"code":5,"message":"error:pkg/registry:not_found"}`, "error:pkg/registry:not_found"},
		{"plain text", "bad gateway", "bad gateway"},
		{"empty", "", "unexpected status code: 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(502, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
