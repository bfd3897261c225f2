// Package api provides the REST client for the complaint backend.
//
// This package implements:
//   - Connection pooling for HTTP performance (one shared transport)
//   - A rate-limiting transport that refuses requests locally before they
//     reach the network
//   - Typed calls for the report, tindakan (action record), kesimpulan and
//     mode-management endpoints
//
// Every call takes a context and returns typed errors from internal/errors:
// RateLimitError when the local gate refused the call, APIError for
// transport failures and non-2xx answers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/metrics"
	"pengaduan/internal/ratelimit"

	"github.com/google/uuid"
)

// maxErrorBody caps how much of an error response is kept in APIError.
const maxErrorBody = 512

// NewHTTPClient creates a new HTTP client with connection pooling.
//
// Connection pool configuration:
//   - MaxIdleConns: 100 (total idle connections across all hosts)
//   - MaxIdleConnsPerHost: 10 (idle connections per host)
//   - IdleConnTimeout: 90 seconds
//   - Keep-alive enabled, HTTP/2 attempted
//
// Parameters:
//   - timeout: Maximum time for a complete request (including reading response)
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableKeepAlives:   false,
			MaxConnsPerHost:     0,
			DisableCompression:  false,
			ForceAttemptHTTP2:   true,
		},
	}
}

// Client talks to the complaint backend.
//
// Thread-safety:
//   - Client is immutable after New and safe for concurrent use
//   - The gates it holds are shared with the rest of the process
type Client struct {
	baseURL    string
	httpClient *http.Client
	gate       ratelimit.Gate
	modeGate   ratelimit.Gate
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithGate installs the general limiter every request passes through.
func WithGate(g ratelimit.Gate) Option {
	return func(c *Client) {
		c.gate = g
	}
}

// WithModeGate installs the stricter limiter consulted by SetMode.
func WithModeGate(g ratelimit.Gate) Option {
	return func(c *Client) {
		c.modeGate = g
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a backend client rooted at baseURL (e.g. "https://host/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: NewHTTPClient(30 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.gate != nil {
		gated := *c.httpClient
		gated.Transport = newGateTransport(c.httpClient.Transport, c.gate)
		c.httpClient = &gated
	}

	return c
}

// do sends one JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var rateErr *apperrors.RateLimitError
		if asRateLimit(err, &rateErr) {
			return rateErr
		}
		metrics.RecordBackendCall(method, 0, time.Since(start))
		log.Printf("  ✗ %s %s failed: %v", method, path, err)
		return apperrors.NewAPIError(method, path, 0, "", err)
	}
	defer resp.Body.Close()
	metrics.RecordBackendCall(method, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewAPIError(method, path, resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(data)
		log.Printf("  ✗ %s %s returned %d: %s", method, path, resp.StatusCode, msg)
		return apperrors.NewAPIError(method, path, resp.StatusCode, msg, nil)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewAPIError(method, path, resp.StatusCode, "", fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// errorMessage pulls "message"/"error" out of a JSON error body, falling back
// to the (truncated) raw text.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		// Cut on a rune boundary so the message stays valid UTF-8.
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
