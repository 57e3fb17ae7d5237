// Package cms is the HTTP transport to the headless CMS that owns products, orders and payments.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBody = 4 << 20 // 4MB

var ErrUnavailable = errors.New("cms unavailable")

// APIError is a non-2xx answer from the CMS. Message is the server-provided text, empty when the
// body carried none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("cms returned %d: %s", e.Status, msg)
}

// IsNotFound reports whether err is a CMS 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Token is the customer bearer token. Empty means the service token is used.
	Token string
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
	settings     gobreaker.Settings
	cb           *gobreaker.CircuitBreaker[*response]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(cl *Client) { cl.settings = st }
}

// WithBreakerName names the breaker. Clients with distinct names trip independently.
func WithBreakerName(name string) Option {
	return func(cl *Client) { cl.settings.Name = name }
}

func NewClient(baseURL, serviceToken string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		settings: gobreaker.Settings{
			Name:        "cms",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.IsSuccessful == nil {
		c.settings.IsSuccessful = healthyOutcome
	}
	c.cb = gobreaker.NewCircuitBreaker[*response](c.settings)
	return c
}

// abortedError marks a call that ended because the caller's context did, not because the CMS
// misbehaved.
type abortedError struct {
	err error
}

func (e *abortedError) Error() string { return e.err.Error() }
func (e *abortedError) Unwrap() error { return e.err }

func healthyOutcome(err error) bool {
	var aborted *abortedError
	return err == nil || errors.As(err, &aborted)
}

// Do sends the request and decodes a 2xx JSON body into out (when out is not nil).
// Transport errors and 5xx answers count against the circuit breaker. 4xx answers and calls
// abandoned by the caller (cancelled or past its own deadline) do not.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.cb.Execute(func() (*response, error) {
		r, err := c.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &abortedError{err: ctx.Err()}
			}
			return nil, err
		}
		defer r.Body.Close()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxResponseBody))
		if err != nil {
			if ctx.Err() != nil {
				return nil, &abortedError{err: ctx.Err()}
			}
			return nil, fmt.Errorf("read response: %w", err)
		}
		if r.StatusCode >= http.StatusInternalServerError {
			return nil, apiError(r.StatusCode, body)
		}
		return &response{status: r.StatusCode, body: body}, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	if resp.status < 200 || resp.status > 299 {
		return apiError(resp.status, resp.body)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	token := req.Token
	if token == "" {
		token = c.serviceToken
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

// apiError extracts {"error":{"message":...}} or {"error":"..."} from a failed response.
func apiError(status int, body []byte) *APIError {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			msg = nested.Message
		} else {
			var plain string
			if json.Unmarshal(envelope.Error, &plain) == nil {
				msg = plain
			}
		}
	}
	return &APIError{Status: status, Message: msg}
}
