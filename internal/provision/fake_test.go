package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type statusError struct {
	code int
}

func (e *statusError) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e *statusError) HTTPStatus() int { return e.code }

// fakeRegistry is an in-memory Registry. Entities registered through it
// exist afterwards, so a second registration yields a 409.
type fakeRegistry struct {
	mu sync.Mutex

	cred        CredentialCheck
	credCalls   int
	existing    map[string]bool
	existErr    map[string]error
	registerErr map[string]error
	conflictAs  RegisterResult
	useResult   bool
	delay       map[string]time.Duration
	block       bool

	existCalls    int
	registerCalls []string

	inFlight    int32
	maxInFlight int32
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		existing:    map[string]bool{},
		existErr:    map[string]error{},
		registerErr: map[string]error{},
		delay:       map[string]time.Duration{},
	}
}

func (f *fakeRegistry) enter() func() {
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		m := atomic.LoadInt32(&f.maxInFlight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInFlight, m, n) {
			break
		}
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeRegistry) wait(ctx context.Context, id string) error {
	f.mu.Lock()
	d := f.delay[id]
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeRegistry) TestCredentials(ctx context.Context, cfg RegistryConfig) CredentialCheck {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credCalls++
	return f.cred
}

func (f *fakeRegistry) CheckExistence(ctx context.Context, kind Kind, remoteID string, cfg RegistryConfig) (bool, error) {
	defer f.enter()()
	if err := f.wait(ctx, remoteID); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.existCalls++
	if err := f.existErr[remoteID]; err != nil {
		return false, err
	}
	return f.existing[remoteID], nil
}

func (f *fakeRegistry) Register(ctx context.Context, req RegistrationRequest, cfg RegistryConfig) (RegisterResult, error) {
	defer f.enter()()
	if err := f.wait(ctx, req.RemoteID); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls = append(f.registerCalls, req.RemoteID)
	if err := f.registerErr[req.RemoteID]; err != nil {
		return 0, err
	}
	if f.existing[req.RemoteID] {
		if f.useResult {
			return f.conflictAs, nil
		}
		return 0, &statusError{code: 409}
	}
	f.existing[req.RemoteID] = true
	return RegisterCreated, nil
}

var errRefused = errors.New("connection refused")

func device(id, hw string) Entity {
	return Entity{LocalID: id, HardwareEUI: hw, DisplayName: "Device " + id, Kind: KindDevice}
}

func gateway(id, hw string) Entity {
	return Entity{LocalID: id, HardwareEUI: hw, DisplayName: "Gateway " + id, Kind: KindGateway}
}

func testConfig() RegistryConfig {
	return RegistryConfig{
		OrgID:         "org-1",
		Enabled:       true,
		Cluster:       "eu1",
		ApplicationID: "app-1",
		CredentialRef: "env:TEST_KEY",
		GatewayOwner:  "owner",
	}
}
