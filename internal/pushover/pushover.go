// Package pushover sends operator alerts through the Pushover messages API.
package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the messages API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Error represents a failed notification.
type Error struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pushover: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("pushover: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Notifier is anything that can deliver an operator alert.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Client posts messages for one application token to one user key.
type Client struct {
	appToken string
	userKey  string
	endpoint string
	http     *http.Client
	prefix   string
}

// Options configures the client.
type Options struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Prefix is prepended to every message, typically the community name.
	Prefix string
}

// New creates a client. opts may be nil.
func New(appToken, userKey string, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{appToken: appToken, userKey: userKey, endpoint: endpoint, http: httpClient, prefix: opts.Prefix}
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Notify sends message. A non-1 status in the body is reported as an error even on HTTP 200.
func (c *Client) Notify(ctx context.Context, message string) error {
	if c.prefix != "" {
		message = c.prefix + ": " + message
	}
	form := url.Values{
		"token":   {c.appToken},
		"user":    {c.userKey},
		"message": {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	var parsed response
	_ = json.Unmarshal(body, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.Status != 1 {
		msg := fmt.Sprintf("HTTP status %d", resp.StatusCode)
		if len(parsed.Errors) > 0 {
			msg = strings.Join(parsed.Errors, "; ")
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

// Discard drops every message. It stands in when no Pushover credentials are configured.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, string) error { return nil }
