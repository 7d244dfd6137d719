package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/veloxcase/veloxcase-tui/internal/logger"
)

const (
	// DefaultEndpoint is the production VeloxCase API base URL.
	DefaultEndpoint = "https://quickcase-api.onrender.com/api"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
)

// ErrUnauthorized matches any 401 response via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the API.
type Error struct {
	Op         string
	StatusCode int
	// Msg is the server's "msg" field, if the body carried one.
	Msg string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

// Is reports 401 responses as ErrUnauthorized.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Message returns the server-provided message carried by err, if any.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Msg
	}
	return ""
}

// ClientConfig contains configuration for creating a new API client.
type ClientConfig struct {
	// Endpoint is the API base URL (defaults to DefaultEndpoint).
	Endpoint string
	// Token is an initial bearer token; it can be changed later with SetToken.
	Token string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 30s).
	Timeout time.Duration
}

// Client talks to the VeloxCase API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	auth       *authTransport
}

// NewClient creates a new API client with the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	auth := &authTransport{token: cfg.Token}

	var httpClient *http.Client
	if cfg.HTTPClient != nil {
		// Wrap a copy so the caller's client keeps its own transport.
		clone := *cfg.HTTPClient
		httpClient = &clone
		auth.Base = httpClient.Transport
		if auth.Base == nil {
			auth.Base = http.DefaultTransport
		}
		httpClient.Transport = auth
		if httpClient.Timeout == 0 {
			httpClient.Timeout = timeout
		}
	} else {
		auth.Base = http.DefaultTransport
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: auth,
		}
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		auth:       auth,
	}
}

// Endpoint returns the API base URL being used.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// SetToken sets the bearer token attached to every subsequent request.
// An empty token removes the Authorization header.
func (c *Client) SetToken(token string) {
	c.auth.setToken(token)
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.auth.currentToken()
}

// authTransport adds the Authorization header to requests.
type authTransport struct {
	mu    sync.RWMutex
	token string
	Base  http.RoundTripper
}

func (t *authTransport) setToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

func (t *authTransport) currentToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.currentToken()
	if token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if t.Base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.Base.RoundTrip(req)
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.ErrorWithErr(err, "api: %s %s failed", method, path)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	logger.Debug("api: %s %s status=%d elapsed=%s", method, path, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Op: op, StatusCode: resp.StatusCode}
		var msgBody struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(data, &msgBody) == nil {
			apiErr.Msg = msgBody.Msg
		}
		logger.Warning("api: %s %s rejected status=%d msg=%q", method, path, resp.StatusCode, apiErr.Msg)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
