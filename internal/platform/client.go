// Package platform is the HTTP client for the chiwen console API.
//
// Every failure is returned as an *errors.ConsoleError: NET-001 when the
// server could not be reached, REMOTE-001/REMOTE-002 for a non-2xx status
// (carrying the server's own message when the body is structured), and
// RESP-001 when a 2xx body cannot be decoded.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/tokenstore"
	"github.com/cjl-github/chiwen/internal/version"
)

// DefaultProfilePath is the endpoint returning the caller's own profile.
const DefaultProfilePath = "/api/v1/me"

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is the console API client. It holds no credentials; callers pass
// the bearer token per request.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	ProfilePath string

	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.HTTPClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithProfilePath overrides the profile refresh endpoint.
func WithProfilePath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.ProfilePath = path
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = log.OrDiscard(l)
	}
}

// NewClient creates a console API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		ProfilePath: DefaultProfilePath,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request, authenticated when token is set
func (c *Client) doRequest(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := c.logger.With("method", method, "path", path, "request_id", requestID)
	if token != "" {
		logger = logger.With("token_fp", tokenstore.Fingerprint(token))
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.DebugContext(ctx, "request failed", "error", err.Error())
		return nil, errors.NewTransportError(err)
	}
	logger.DebugContext(ctx, "request completed", "status", resp.StatusCode, "duration", time.Since(start))

	return resp, nil
}

// Ping requests the server root without credentials and returns the HTTP
// status. Any status means the server is reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/", "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // drain for connection reuse
	return resp.StatusCode, nil
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseResponse parses the response body into the target struct
func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort
		return errors.NewRemoteRejectedError(resp.StatusCode, errorMessage(resp.StatusCode, body))
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.NewMalformedResponseError("response body is not valid JSON", err)
	}
	return nil
}

// errorMessage extracts the server's message from an error body, falling
// back to a generic status line.
func errorMessage(status int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("request failed with status %d %s", status, text)
	}
	return fmt.Sprintf("request failed with status %d", status)
}
