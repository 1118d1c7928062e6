// Package client talks to the canvas store over its REST and server-push
// endpoints.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/livesync"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/logger"
	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

const (
	apiPrefix = "/api/v1"

	DefaultTimeout  = 10 * time.Second
	DefaultMaxTries = 3
	DefaultBackoff  = 250 * time.Millisecond
)

// StatusError is a non-2xx answer from the store
type StatusError struct {
	StatusCode int
	Code       string // machine-readable error, e.g. "canvas_not_found"
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Unwrap maps 404 onto livesync.ErrNotFound
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return livesync.ErrNotFound
	}
	return nil
}

// Temporary reports whether retrying may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client is safe for concurrent use
type Client struct {
	base     *url.URL
	http     *http.Client
	stream   *http.Client
	maxTries int
	backoff  time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the client used for REST calls
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStreamClient replaces the client used for the event stream. It must
// not set an overall timeout.
func WithStreamClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.stream = hc
		}
	}
}

// WithRetries sets how many attempts a REST call gets
func WithRetries(maxTries int) ClientOption {
	return func(c *Client) {
		c.maxTries = maxTries
	}
}

// WithBackoff sets the base delay between attempts; it doubles each retry
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = d
	}
}

// New creates a client for the store at baseURL, e.g. http://localhost:8000
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}

	c := &Client{
		base:     u,
		http:     &http.Client{Timeout: DefaultTimeout},
		stream:   &http.Client{},
		maxTries: DefaultMaxTries,
		backoff:  DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server root
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// FetchCanvas returns the full canvas. An unknown id yields an error
// matching livesync.ErrNotFound.
func (c *Client) FetchCanvas(ctx context.Context, canvasID string) (*model.CanvasData, error) {
	if canvasID == "" {
		return nil, fmt.Errorf("fetch canvas: empty canvas id")
	}
	var canvas model.CanvasData
	err := c.getJSON(ctx, c.endpoint("/canvas", url.Values{"canvas_id": {canvasID}}), &canvas)
	if err != nil {
		return nil, err
	}
	if canvas.CanvasID == "" {
		canvas.CanvasID = canvasID
	}
	if err := canvas.Validate(); err != nil {
		return nil, fmt.Errorf("invalid canvas %s: %w", canvasID, err)
	}
	return &canvas, nil
}

// ListCanvases returns a summary of every canvas on the server
func (c *Client) ListCanvases(ctx context.Context) ([]model.CanvasSummary, error) {
	var resp model.CanvasListResponse
	if err := c.getJSON(ctx, c.endpoint("/canvas/list", nil), &resp); err != nil {
		return nil, err
	}
	return resp.Canvases, nil
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) (*model.HealthCheckResponse, error) {
	var resp model.HealthCheckResponse
	if err := c.getJSON(ctx, c.endpoint("/health", nil), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// getJSON performs a GET with retries and decodes the body into out
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	body, err := retryWithContext(ctx, c.maxTries, c.backoff, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// statusError decodes either {"error","message"} or the same object nested
// under "detail".
func statusError(code int, body []byte) *StatusError {
	se := &StatusError{StatusCode: code}

	var flat model.ErrorResponse
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		se.Code, se.Message = flat.Error, flat.Message
		return se
	}
	var nested struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &nested) == nil && len(nested.Detail) > 0 {
		var detail model.ErrorResponse
		if json.Unmarshal(nested.Detail, &detail) == nil && detail.Error != "" {
			se.Code, se.Message = detail.Error, detail.Message
			return se
		}
		var text string
		if json.Unmarshal(nested.Detail, &text) == nil {
			se.Message = text
		}
	}
	return se
}

// retryable reports whether another attempt could help
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// retryWithContext calls fn up to maxTries times, doubling the pause between
// attempts, until it succeeds, fails permanently or ctx ends.
func retryWithContext[T any](ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var zero T
	var lastErr error
	delay := backoff
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || i == maxTries-1 {
			break
		}
		logger.Debug("Retrying request", "attempt", i+1, "error", err)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}
	}
	return zero, lastErr
}
