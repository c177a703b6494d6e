// Package client is the single HTTP client the CLI uses to talk to the API.
// Every request carries the credential cookies and passes through the
// session refresh interceptor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds every request, including the refresh call
	DefaultTimeout = 10 * time.Second

	// BaseURLEnv overrides the API base URL
	BaseURLEnv = "PAGECRAFT_API_URL"

	DefaultBaseURL = "http://localhost:8080/api"
)

// Request describes one API call. It is treated as immutable: the interceptor
// derives a retry copy instead of changing the original.
type Request struct {
	Method string
	Path   string // relative to the base URL, e.g. "/portfolios"
	Query  url.Values
	Body   interface{} // JSON encoded when non-nil
	Header http.Header

	retried bool
}

// Retried reports whether this descriptor is the one replay of an earlier request
func (r Request) Retried() bool {
	return r.retried
}

func (r Request) asRetry() Request {
	r.retried = true
	return r
}

// Response is a successful (2xx) API response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// envelope is the shape every API response shares
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client represents an HTTP client for the Pagecraft API
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	logger          zerolog.Logger
	terminator      SessionTerminator
	signOutRedirect string

	// refresh bookkeeping, see refresh.go
	refreshMu  sync.Mutex
	refreshGen uint64
	refreshErr error
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its timeout and jar are
// filled in when unset.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithJar sets the cookie jar holding the credential cookies
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionTerminator sets what happens when the session cannot be refreshed
func WithSessionTerminator(t SessionTerminator) Option {
	return func(c *Client) { c.terminator = t }
}

// WithSignOutRedirect sets the location handed to the terminator
func WithSignOutRedirect(location string) Option {
	return func(c *Client) { c.signOutRedirect = location }
}

// ResolveBaseURL picks the explicit URL, then PAGECRAFT_API_URL, then the default
func ResolveBaseURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(BaseURLEnv); env != "" {
		return env
	}
	return DefaultBaseURL
}

// New creates a new API client. An empty baseURL is resolved with ResolveBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(ResolveBaseURL(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", parsed.String())
	}

	c := &Client{
		baseURL:         parsed,
		httpClient:      &http.Client{},
		logger:          zerolog.Nop(),
		signOutRedirect: DefaultSignOutRedirect,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = DefaultTimeout
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SiteURL returns the origin serving the pages, i.e. the base URL without its path
func (c *Client) SiteURL() string {
	site := *c.baseURL
	site.Path, site.RawQuery = "", ""
	return site.String()
}

// Do sends req through the refresh interceptor
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	return c.intercept(ctx, req)
}

// send performs exactly one HTTP exchange
func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := KindNetwork
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			kind = KindTimeout
		}
		c.logger.Debug().Err(err).Str("method", method).Str("path", req.Path).Msg("Request failed")
		return nil, &Error{Kind: kind, Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Status: resp.StatusCode, Method: method, Path: req.Path, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Bool("retried", req.retried).
		Msg("API request")

	if resp.StatusCode >= 400 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		return nil, &Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: env.Message,
			Method:  method,
			Path:    req.Path,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
