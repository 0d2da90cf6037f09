// Package client provides an HTTP client for the estate-bids API. Every call
// is bounded by a timeout; mutations whose response is lost are settled by
// reading the affected entity back rather than by sending them again.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/reconcile"
)

// Client is an HTTP client for the estate-bids API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	policy     reconcile.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the timeout and reconciliation policy.
func WithPolicy(p reconcile.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout sets the per-call timeout, keeping the rest of the policy.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.policy.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new API client.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
		policy:     reconcile.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireError is the JSON error body returned by the server.
type wireError struct {
	Error      string             `json:"error"`
	Kind       apperr.Kind        `json:"kind"`
	Violations []apperr.Violation `json:"violations"`
	From       string             `json:"from"`
	To         string             `json:"to"`
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := reconcile.Read(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodGet, "/health", nil, nil)
	})
	return err
}

// get reads path into a new T, retrying once on a transport failure.
func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	return reconcile.Read(ctx, c.policy, func(ctx context.Context) (T, error) {
		var v T
		err := c.do(ctx, http.MethodGet, path, nil, &v)
		return v, err
	})
}

// mutate sends one write and, if its outcome is lost, settles it with probe.
func mutate[T any](ctx context.Context, c *Client, method, path string, body interface{}, probe reconcile.Probe[T]) (T, error) {
	return reconcile.Mutate(ctx, c.policy, func(ctx context.Context) (T, error) {
		var v T
		err := c.do(ctx, method, path, body, &v)
		return v, err
	}, probe)
}

// do executes an HTTP request with the auth header and maps failures to
// typed errors.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return apperr.Network(err, "%s %s", method, path)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Debug("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Network(err, "reading response of %s %s", method, path)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func decodeError(status int, body []byte) error {
	var we wireError
	if json.Unmarshal(body, &we) == nil && we.Kind != "" {
		return apperr.FromWire(we.Kind, we.Error, we.Violations, we.From, we.To)
	}

	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperr.Network(fmt.Errorf("status %d", status), "server unavailable")
	case http.StatusUnauthorized:
		return apperr.Auth("not authenticated (run 'eb login')")
	}
	if we.Error != "" {
		return fmt.Errorf("%s", we.Error)
	}
	return fmt.Errorf("server error: %s", http.StatusText(status))
}

func escape(id string) string {
	return url.PathEscape(id)
}
