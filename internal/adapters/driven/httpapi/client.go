// Package httpapi is the JSON-over-HTTP client shared by the language model
// and embedding adapters. It owns request encoding and turns provider error
// replies into typed errors, so adapters only map their wire formats.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/ray/internal/core/domain"
)

// DefaultTimeout applies when a client is created without one.
const DefaultTimeout = 120 * time.Second

// maxErrorBody bounds how much of an error reply is kept in messages.
const maxErrorBody = 512

// StatusError is a provider reply that carried an error, either a non-2xx
// status or an error object in an otherwise successful body.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Status, e.Message)
}

// Unwrap classifies the failure for the router.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return domain.ErrProvider
}

// Client sends requests to one provider's API.
type Client struct {
	provider string
	baseURL  string
	header   http.Header
	query    url.Values
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithBearer sends token as a bearer Authorization header.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithQuery adds a query parameter to every request.
func WithQuery(key, value string) Option {
	return func(c *Client) { c.query.Set(key, value) }
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		header:   make(http.Header),
		query:    make(url.Values),
		http:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider name used in errors.
func (c *Client) Provider() string {
	return c.provider
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends in as JSON to path and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	reply, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(reply, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// Get requests path and discards the reply. Adapters use it as a cheap
// reachability and credential check.
func (c *Client) Get(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodGet, path, http.NoBody)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(c.query) > 0 {
		endpoint += "?" + c.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", c.provider, redact(err, c.query))
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	msg := errorMessage(reply)
	if resp.StatusCode/100 != 2 {
		if msg == "" {
			msg = domain.Truncate(strings.TrimSpace(string(reply)), maxErrorBody)
		}
		return nil, &StatusError{Provider: c.provider, Status: resp.StatusCode, Message: msg}
	}
	if msg != "" {
		return nil, &StatusError{Provider: c.provider, Status: resp.StatusCode, Message: msg}
	}
	return reply, nil
}

// errorMessage extracts the "error" member providers put in failed replies,
// either a string or an object with a message.
func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return ""
	}
	var text string
	if json.Unmarshal(envelope.Error, &text) == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return domain.Truncate(string(envelope.Error), maxErrorBody)
}

// redact removes query parameter values, which may hold API keys, from
// transport errors.
func redact(err error, query url.Values) error {
	var uerr *url.Error
	if len(query) == 0 || !errors.As(err, &uerr) {
		return err
	}
	if i := strings.IndexByte(uerr.URL, '?'); i >= 0 {
		uerr.URL = uerr.URL[:i]
	}
	return err
}
