// Package client is the HTTP and websocket client for a sitecanvas server. It
// implements the editor's canvas.Store port over the JSON API and feeds remote
// diagram updates back through a Subscriber.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const csrfCookieName = "X-CSRF-Token"

// Identity is the authenticated user as reported by the server.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one sitecanvas server. The zero value is not usable; use New.
// Sessions ride the cookie jar, so a single Client serves one user at a time.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

// Option adjusts a Client during construction.
type Option func(*Client)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout caps each request round trip. Defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// New builds a client for the server at baseURL (scheme and host, no trailing slash).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Jar: jar, Timeout: 15 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login authenticates and stores the session cookie for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (Identity, error) {
	// A throwaway safe request seeds the CSRF cookie before the first mutation.
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return Identity{}, fmt.Errorf("reach server: %w", err)
	}
	var id Identity
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, &id)
	if err != nil {
		return Identity{}, fmt.Errorf("login: %w", err)
	}
	return id, nil
}

// Logout ends the server session. The local cookie jar keeps the stale cookie;
// the server rejects it from here on.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the identity bound to the current session.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &id); err != nil {
		return Identity{}, fmt.Errorf("me: %w", err)
	}
	return id, nil
}

func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.httpc.Jar.Cookies(u) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

// do runs one JSON round trip. A nil out discards the response body; non-2xx
// statuses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.csrfToken(); token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err == nil && json.Unmarshal(raw, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
