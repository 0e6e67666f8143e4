// Package clients talks to the remote storefront backend. Every request
// carries the session token and CSRF token read from the store; a 401 is
// retried once after a token refresh, and a failed refresh tears the local
// session down.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gasexpress/internal/kv"
	"gasexpress/internal/session"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 8 * time.Second

// ErrUnavailable marks transport failures, timeouts, and 5xx responses. Only
// these make a repository fall back to its local copy.
var ErrUnavailable = errors.New("backend unavailable")

// ErrUnauthorized is reported when a 401 survives the one refresh attempt.
var ErrUnauthorized = errors.New("session rejected by backend")

// StatusError carries a 4xx the backend meant for the caller. It is never
// eligible for local fallback.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Client is the JSON HTTP client for the remote backend.
type Client struct {
	baseURL  string
	store    kv.Store
	sessions session.Service
	http     *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.http.Timeout = timeout }
}

// WithHTTPClient substitutes the underlying HTTP client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a backend client. The session service handles the 401 refresh
// path; pass nil to surface 401s directly.
func New(baseURL string, store kv.Store, sessions session.Service, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		store:    store,
		sessions: sessions,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET and decodes the response into dst.
func (c *Client) Get(ctx context.Context, path string, dst any) error {
	return c.do(ctx, http.MethodGet, path, nil, dst)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPut, path, body, dst)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, dst any) error {
	return c.do(ctx, http.MethodPost, path, body, dst)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if c.sessions == nil {
			return ErrUnauthorized
		}
		if !c.sessions.Refresh(ctx) {
			c.sessions.Logout(ctx)
			return ErrUnauthorized
		}
		// One retry with the refreshed token.
		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.sessions.Logout(ctx)
			return ErrUnauthorized
		}
	}

	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return nil
}

// send builds and executes one request with the current auth headers.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if c.store.Get(kv.KeySessionToken, &token) && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	var csrf string
	if c.store.Get(kv.KeyCSRFToken, &csrf) && csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Cancellation is the caller's decision, not an outage.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
