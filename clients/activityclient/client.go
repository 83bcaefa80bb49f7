// Package activityclient provides a client for the activities REST API.
//
// Example usage:
//
//	client, err := activityclient.New("http://localhost:8000")
//	cat, err := client.Activities(ctx)
//	res, err := client.Signup(ctx, "Chess Club", "michael@mergington.edu")
package activityclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nomis52/clubsignup/catalog"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// Client talks to the activities API.
type Client struct {
	Host       string
	Logger     *slog.Logger
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for the API at host. The host must include the scheme
// (e.g. "http://localhost:8000").
func New(host string, opts ...Option) (*Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("host URL must include scheme and host: %q", host)
	}

	c := &Client{
		Host:       strings.TrimRight(host, "/"),
		Logger:     slog.Default(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Activities fetches the full catalog.
func (c *Client) Activities(ctx context.Context) (*catalog.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+"/activities", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxBodyBytes)
	if resp.StatusCode/100 != 2 {
		return nil, c.apiError(resp.StatusCode, body)
	}

	cat, err := catalog.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	c.Logger.Debug("catalog fetched", "activities", cat.Len())
	return cat, nil
}

// Signup registers email for the named activity.
func (c *Client) Signup(ctx context.Context, activity, email string) (Result, error) {
	form := url.Values{"email": {email}}
	endpoint := c.activityURL(activity, "signup")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.mutate(req)
}

// Unregister removes email from the named activity.
func (c *Client) Unregister(ctx context.Context, activity, email string) (Result, error) {
	query := url.Values{"email": {email}}
	endpoint := c.activityURL(activity, "unregister") + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}

	return c.mutate(req)
}

// activityURL returns the URL of an action on an activity, with the name escaped
// as a single path segment.
func (c *Client) activityURL(activity, action string) string {
	return c.Host + "/activities/" + url.PathEscape(activity) + "/" + action
}

func (c *Client) mutate(req *http.Request) (Result, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("%w: status %d: %w", ErrDecode, resp.StatusCode, err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: body.detailText()}
		c.Logger.Debug("request rejected", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "detail", apiErr.Detail)
		return Result{}, apiErr
	}
	return Result{Message: body.Message}, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Warn("request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, req.Method, req.URL.Path, err)
	}
	c.Logger.Debug("request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (c *Client) apiError(status int, body io.Reader) error {
	var r response
	if err := json.NewDecoder(body).Decode(&r); err != nil {
		return &APIError{StatusCode: status}
	}
	return &APIError{StatusCode: status, Detail: r.detailText()}
}
