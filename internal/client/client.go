// Package client is a typed HTTP client for the archive API. Transient
// failures are retried according to each operation's idempotency class;
// non-idempotent calls carry an Idempotency-Key so a retry cannot apply
// twice.
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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/qarchive/internal/api"
	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/retry"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
	// InFlight marks a 409 for a keyed request the server is still
	// processing. Resending the same key is safe.
	InFlight bool
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: HTTP %d", e.Code)
	}
	return fmt.Sprintf("client: HTTP %d: %s", e.Code, e.Message)
}

// Unwrap maps the status to the matching apperr sentinel.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.ErrInvalidInput
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	default:
		return nil
	}
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	if e.InFlight {
		return true
	}
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Client talks to one API base URL, e.g. http://localhost:8080/api.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	policy  retry.Policy
	newKey  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.policy.Logger = l
	}
}

// WithoutIdempotencyKeys stops sending Idempotency-Key headers. Non-idempotent
// calls then get a single attempt.
func WithoutIdempotencyKeys() Option {
	return func(c *Client) {
		c.newKey = nil
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		policy:  retry.DefaultPolicy(),
		newKey:  uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	class  retry.Class
	method string
	path   string
	in     any
	out    any
}

// do sends r, retrying per its class. out is decoded only from a 2xx body.
func (c *Client) do(ctx context.Context, r request) error {
	var body []byte
	if r.in != nil {
		var err error
		if body, err = json.Marshal(r.in); err != nil {
			return fmt.Errorf("client: encode %s %s: %w", r.method, r.path, err)
		}
	}

	var key string
	if r.class == retry.NonIdempotent && c.newKey != nil {
		key = c.newKey()
	}
	policy := c.policy.For(r.class, key != "")

	raw, err := retry.Do(ctx, policy, r.method+" "+r.path, func(ctx context.Context) ([]byte, error) {
		return c.send(ctx, r.method, r.path, body, key)
	})
	if err != nil {
		return err
	}
	if r.out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, r.out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, key string) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("client: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if key != "" {
		req.Header.Set(api.IdempotencyKeyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 300 {
		return data, nil
	}

	se := &StatusError{
		Code:     resp.StatusCode,
		InFlight: key != "" && resp.StatusCode == http.StatusConflict && resp.Header.Get("Retry-After") != "",
	}
	var eb struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &eb) == nil {
		se.Message = eb.Error
	}
	if se.Transient() {
		return nil, se
	}
	return nil, retry.Permanent(se)
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
