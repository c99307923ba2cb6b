package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/lorasim/internal/logging"
	"github.com/muurk/lorasim/internal/provision"
	"github.com/muurk/lorasim/internal/urls"
	"github.com/muurk/lorasim/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// maxErrorBody bounds how much of an error response is kept
	maxErrorBody = 4096
)

var _ provision.Registry = (*Client)(nil)

// Client talks to The Things Stack identity, network and join servers.
// It is safe for concurrent use.
type Client struct {
	// BaseURL overrides the per-cluster URL (private deployments, tests).
	// When empty the URL is derived from RegistryConfig.Cluster.
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// ResolveKey loads the API key for a credential reference
	ResolveKey func(ref string) (string, error)
}

// NewClient creates a registry client that derives its URL from the cluster
func NewClient() *Client {
	return NewClientWithURL("")
}

// NewClientWithURL creates a client pinned to a base URL
// baseURL: Full base URL (e.g., "https://tts.example.com")
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		ResolveKey:            ResolveAPIKey,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

func (c *Client) baseURL(cfg provision.RegistryConfig) string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return urls.ClusterBaseURL(cfg.Cluster)
}

// TestCredentials checks the API key against the application's rights.
func (c *Client) TestCredentials(ctx context.Context, cfg provision.RegistryConfig) provision.CredentialCheck {
	key, err := c.ResolveKey(cfg.CredentialRef)
	if err != nil {
		return provision.CredentialCheck{Category: provision.CredentialInvalid, Message: GetShortErrorMessage(err)}
	}

	path := "/api/v3/applications/" + url.PathEscape(cfg.ApplicationID) + "/rights"
	body, err := c.do(ctx, cfg, key, http.MethodGet, path, nil)
	if err != nil {
		re, _ := asError(err)
		check := provision.CredentialCheck{Message: GetShortErrorMessage(err)}
		if re != nil {
			check.StatusCode = re.StatusCode
		}
		switch {
		case IsForbidden(err):
			check.Category = provision.CredentialPermissionDenied
		case IsAuthError(err):
			check.Category = provision.CredentialInvalid
		case IsNotFound(err):
			check.Category = provision.CredentialInvalid
			check.Message = fmt.Sprintf("application %q not found", cfg.ApplicationID)
		case re != nil && re.StatusCode != 0 && re.StatusCode < 500:
			check.Category = provision.CredentialInvalid
		default:
			check.Category = provision.CredentialUnreachable
		}
		return check
	}

	var rights RightsResponse
	if err := json.Unmarshal(body, &rights); err != nil {
		return provision.CredentialCheck{
			Category: provision.CredentialUnreachable,
			Message:  GetShortErrorMessage(NewParseError("failed to parse rights", err)),
		}
	}
	if missing := rights.Missing(); len(missing) > 0 {
		return provision.CredentialCheck{
			Category:   provision.CredentialPermissionDenied,
			Message:    "missing " + strings.Join(missing, ", "),
			StatusCode: http.StatusForbidden,
		}
	}
	return provision.CredentialCheck{Category: provision.CredentialOK}
}

// CheckExistence looks the entity up by its remote ID. A 404 means it does
// not exist; any other failure is returned as an error.
func (c *Client) CheckExistence(ctx context.Context, kind provision.Kind, remoteID string, cfg provision.RegistryConfig) (bool, error) {
	key, err := c.ResolveKey(cfg.CredentialRef)
	if err != nil {
		return false, err
	}

	var path string
	switch kind {
	case provision.KindGateway:
		path = "/api/v3/gateways/" + url.PathEscape(remoteID)
	default:
		path = "/api/v3/applications/" + url.PathEscape(cfg.ApplicationID) + "/devices/" + url.PathEscape(remoteID)
	}

	_, err = c.do(ctx, cfg, key, http.MethodGet, path, nil)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Register creates a device or gateway. A 409 from the create call is
// reported as RegisterAlreadyExists, for devices only once the network and
// join server upserts have succeeded.
func (c *Client) Register(ctx context.Context, req provision.RegistrationRequest, cfg provision.RegistryConfig) (provision.RegisterResult, error) {
	key, err := c.ResolveKey(cfg.CredentialRef)
	if err != nil {
		return 0, err
	}

	if req.Entity.Kind == provision.KindGateway {
		err = c.registerGateway(ctx, req, cfg, key)
		if IsConflict(err) {
			return provision.RegisterAlreadyExists, nil
		}
		if err != nil {
			return 0, err
		}
		return provision.RegisterCreated, nil
	}

	existed, err := c.registerDevice(ctx, req, cfg, key)
	if err != nil {
		return 0, err
	}
	if existed {
		return provision.RegisterAlreadyExists, nil
	}
	return provision.RegisterCreated, nil
}

// registerDevice creates the identity server record, then upserts the
// network and join server parts. The upserts also run when the record
// already exists, so a device left half-registered by an earlier run is
// completed. existed reports a 409 on the create.
func (c *Client) registerDevice(ctx context.Context, req provision.RegistrationRequest, cfg provision.RegistryConfig, key string) (existed bool, err error) {
	app := url.PathEscape(cfg.ApplicationID)
	id := url.PathEscape(req.RemoteID)

	// Resolve the AppKey first so a missing key creates nothing
	var appKey string
	if req.ActivationMode == provision.ActivationOTAA && req.Entity.AppKeyRef != "" {
		appKey, err = c.ResolveKey(req.Entity.AppKeyRef)
		if err != nil {
			logging.Warn("AppKey not available, device not registered",
				zap.String("device_id", req.RemoteID), zap.Error(err))
			return false, NewCredentialError(fmt.Sprintf("cannot resolve AppKey for %s", req.Entity.LocalID), err)
		}
	}

	_, err = c.do(ctx, cfg, key, http.MethodPost, "/api/v3/applications/"+app+"/devices", NewDeviceCreate(req, cfg))
	switch {
	case IsConflict(err):
		existed = true
		logging.Debug("Device already exists, updating network and join server settings",
			zap.String("device_id", req.RemoteID))
	case err != nil:
		return false, err
	}

	if _, err := c.do(ctx, cfg, key, http.MethodPut, "/api/v3/ns/applications/"+app+"/devices/"+id, NewDeviceNetworkSettings(req, cfg)); err != nil {
		return existed, fmt.Errorf("network server: %w", err)
	}

	if appKey == "" {
		return existed, nil
	}
	if _, err := c.do(ctx, cfg, key, http.MethodPut, "/api/v3/js/applications/"+app+"/devices/"+id, NewDeviceRootKeys(req, cfg, appKey)); err != nil {
		return existed, fmt.Errorf("join server: %w", err)
	}
	return existed, nil
}

func (c *Client) registerGateway(ctx context.Context, req provision.RegistrationRequest, cfg provision.RegistryConfig, key string) error {
	if cfg.GatewayOwner == "" {
		return NewValidationError("gateway_owner is not configured")
	}
	path := "/api/v3/users/" + url.PathEscape(cfg.GatewayOwner) + "/gateways"
	_, err := c.do(ctx, cfg, key, http.MethodPost, path, NewGatewayCreate(req, cfg))
	return err
}

// do sends one request with retries. Only retryable errors (5xx, 429,
// timeouts, refused connections) are retried; the context bounds the total.
func (c *Client) do(ctx context.Context, cfg provision.RegistryConfig, key, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, NewParseError("failed to encode request", err)
		}
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return nil, c.contextError(ctx, cfg, lastErr)
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
			logging.Debug("Retrying registry call",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", currentDelay))
		}

		resp, err := c.attempt(ctx, cfg, key, method, path, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, c.contextError(ctx, cfg, err)
		}
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// contextError reports a call whose context ended. An expired deadline is a
// timeout whatever the last attempt returned.
func (c *Client) contextError(ctx context.Context, cfg provision.RegistryConfig, lastErr error) error {
	host := ""
	if u, err := url.Parse(c.baseURL(cfg)); err == nil {
		host = u.Host
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cause := lastErr
		if cause == nil {
			cause = ctx.Err()
		}
		return &Error{
			Type:           ErrTypeTimeout,
			Message:        "Registry call timed out",
			Err:            cause,
			NetworkSubtype: NetworkErrorTimeout,
			Host:           host,
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ClassifyNetworkError(ctx.Err(), host)
}

// attempt performs a single HTTP round trip
func (c *Client) attempt(ctx context.Context, cfg provision.RegistryConfig, key, method, path string, body []byte) ([]byte, error) {
	base := c.baseURL(cfg)
	start := time.Now()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid registry URL %q", base))
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		classified := ClassifyNetworkError(err, req.URL.Host)
		logging.LogRegistryCall(method, path, 0, time.Since(start), classified)
		return nil, classified
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := NewStatusError(resp.StatusCode, errorMessage(resp.StatusCode, data))
		statusErr.Host = req.URL.Host
		logging.LogRegistryCall(method, path, resp.StatusCode, time.Since(start), statusErr)
		return nil, statusErr
	}

	logging.LogRegistryCall(method, path, resp.StatusCode, time.Since(start), nil)
	return data, nil
}

// errorMessage extracts the registry's error message from a response body
func errorMessage(status int, body []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("unexpected status code: %d", status)
}
