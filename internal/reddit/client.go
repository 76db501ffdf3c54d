// Package reddit is the platform binding: an OAuth "script app" client for the handful of
// endpoints the bot needs.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the authenticated API host.
	DefaultBaseURL = "https://oauth.reddit.com"
	// DefaultAuthURL is the token endpoint.
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// tokens are refreshed this long before they expire
	tokenSlack = time.Minute
)

var (
	// ErrNotFound is matched by API errors with status 404.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is matched by API errors with status 403.
	ErrForbidden = errors.New("forbidden")
)

// APIError represents a failed API call.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("reddit %s %s: %s: %v", e.Method, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("reddit %s %s: %s", e.Method, e.Path, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrNotFound and ErrForbidden by status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// Credentials authenticate a script app with the password grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// Options configures the client.
type Options struct {
	BaseURL    string
	AuthURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DefaultOptions returns the production endpoints.
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		AuthURL: DefaultAuthURL,
		Timeout: DefaultTimeout,
	}
}

// Client talks to one community on behalf of the bot account.
type Client struct {
	creds     Credentials
	subreddit string
	baseURL   string
	authURL   string
	http      *http.Client
	now       func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	templates map[string]flairTemplate
}

// New creates a client for subreddit.
func New(creds Credentials, subreddit string, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := opts.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	return &Client{
		creds:     creds,
		subreddit: subreddit,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		authURL:   authURL,
		http:      httpClient,
		now:       time.Now,
		templates: make(map[string]flairTemplate),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// accessToken returns a cached token or fetches a new one with the password grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &APIError{Method: http.MethodPost, Path: c.authURL, Message: "failed to create request", Cause: err}
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	var tok tokenResponse
	if err := c.send(req, "access_token", &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		msg := "no access token in response"
		if tok.Error != "" {
			msg = tok.Error
		}
		return "", &APIError{Method: http.MethodPost, Path: "access_token", StatusCode: http.StatusUnauthorized, Message: msg}
	}

	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

// post performs an authenticated form POST and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, form, out)
}

func (c *Client) call(ctx context.Context, method, path string, query, form url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	target := c.baseURL + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	target += "?" + query.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &APIError{Method: method, Path: path, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.creds.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Method: req.Method, Path: path, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// jsonResponse is the envelope returned by endpoints called with api_type=json.
type jsonResponse struct {
	JSON struct {
		Errors [][]any          `json:"errors"`
		Data   *json.RawMessage `json:"data"`
	} `json:"json"`
}

func (r *jsonResponse) err(method, path string) error {
	if len(r.JSON.Errors) == 0 {
		return nil
	}
	parts := make([]string, 0, len(r.JSON.Errors))
	for _, e := range r.JSON.Errors {
		strs := make([]string, 0, len(e))
		for _, v := range e {
			if s, ok := v.(string); ok && s != "" {
				strs = append(strs, s)
			}
		}
		parts = append(parts, strings.Join(strs, ": "))
	}
	return &APIError{Method: method, Path: path, StatusCode: http.StatusOK, Message: strings.Join(parts, "; ")}
}

// postJSON posts with api_type=json and turns reported errors into an *APIError.
func (c *Client) postJSON(ctx context.Context, path string, form url.Values) (*jsonResponse, error) {
	form.Set("api_type", "json")
	var resp jsonResponse
	if err := c.post(ctx, path, form, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(http.MethodPost, path); err != nil {
		return nil, err
	}
	return &resp, nil
}

// listing is the generic paginated container.
type listing[T any] struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data T      `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *Client) subPath(format string, args ...any) string {
	return "/r/" + url.PathEscape(c.subreddit) + fmt.Sprintf(format, args...)
}
