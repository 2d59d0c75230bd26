// Package admin is a client for the server's HTTP admin API.
//
//	GET /health -> {"status":"ok"}
//	GET /info   -> {"version":"0.1.0"}
//
// Errors are reported as {"error":"..."} with a non-2xx status. When the
// server requires authentication the API key is sent as a bearer token.
package admin

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
)

// DefaultURL is the admin endpoint of a local server.
const DefaultURL = "http://127.0.0.1:9090"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// StatusOK is the health status of a serving node.
const StatusOK = "ok"

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}

// Info is the body of GET /info. Fields the server adds later are kept in Extra.
type Info struct {
	Version string         `json:"version"`
	Extra   map[string]any `json:"-"`
}

// Error is a non-2xx admin response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("admin: http %d", e.StatusCode)
	}
	return fmt.Sprintf("admin: http %d: %s", e.StatusCode, e.Message)
}

// ErrUnhealthy is returned by Health when the server answers with a status
// other than "ok".
var ErrUnhealthy = errors.New("admin: server unhealthy")

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to one admin endpoint.
type Client struct {
	base   *url.URL
	http   *http.Client
	apiKey string
}

// NewClient parses baseURL; an empty baseURL means DefaultURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("admin: invalid url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("admin: invalid url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health returns the health report. It fails with ErrUnhealthy when the
// server answered but not with "ok".
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.get(ctx, "/health", &h); err != nil {
		return Health{}, err
	}
	if h.Status != StatusOK {
		return h, fmt.Errorf("%w: status %q", ErrUnhealthy, h.Status)
	}
	return h, nil
}

// Info returns the server information.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var raw map[string]any
	if err := c.get(ctx, "/info", &raw); err != nil {
		return Info{}, err
	}

	info := Info{Extra: make(map[string]any)}
	for k, v := range raw {
		if k == "version" {
			info.Version, _ = v.(string)
			continue
		}
		info.Extra[k] = v
	}
	return info, nil
}

// WaitHealthy polls Health every interval until it succeeds or ctx is done.
func (c *Client) WaitHealthy(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := c.Health(ctx)
		if err == nil {
			return nil
		}

		var herr *Error
		if errors.As(err, &herr) && herr.StatusCode == http.StatusUnauthorized {
			return err
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("admin: waiting for health: %w (last error: %v)", ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("admin: GET %s: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("admin: GET %s: read body: %w", path, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &Error{StatusCode: res.StatusCode, Message: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("admin: GET %s: decode body: %w", path, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} and falls back to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
