// Package backend is the HTTP client for the marketplace REST backend, the system
// of record for users, meals, orders, payments, favorites and reviews.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const maxErrorBody = 4 << 10

var errServer = errors.New("backend server error")

type tokenKey struct{}

// ContextWithToken attaches the caller's upstream bearer token to ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the upstream bearer token stored in ctx.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Client calls the backend. Every call carries the caller's token, runs under a
// per-call timeout, and passes through a circuit breaker shared by all calls.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*http.Response]
	reads   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: timeout,
	}
	c.cb = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit %s: %s -> %s", name, from, to)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get reads path into out. Identical concurrent reads made with the same token
// share one round trip. The shared call is detached from any one caller's
// cancellation and bounded by the per-call timeout; a caller that gives up
// returns without affecting the others.
func (c *Client) get(ctx context.Context, path string, out any) error {
	key := TokenFromContext(ctx) + " " + path
	ch := c.reads.DoChan(key, func() (any, error) {
		return c.roundTrip(context.WithoutCancel(ctx), http.MethodGet, path, nil, nil)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return decode(res.Val.([]byte), out)
	case <-ctx.Done():
		return fmt.Errorf("%w: GET %s: %v", apperr.ErrNetwork, path, ctx.Err())
	}
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.sendWithHeader(ctx, method, path, body, out, nil)
}

func (c *Client) sendWithHeader(ctx context.Context, method, path string, body, out any, header http.Header) error {
	raw, err := c.roundTrip(ctx, method, path, body, header)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := TokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.cb.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServer
		}
		return resp, nil
	})
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil && !errors.Is(err, errServer) {
		return nil, fmt.Errorf("%w: %s %s: %v", apperr.ErrNetwork, method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %v", apperr.ErrNetwork, method, path, err)
	}
	if resp.StatusCode >= 300 {
		return nil, statusError(method, path, resp.StatusCode, raw)
	}
	return raw, nil
}

func decode(raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// statusError maps a non-2xx backend response to the gateway's error taxonomy.
func statusError(method, path string, status int, raw []byte) error {
	msg := errorMessage(raw)
	if msg == "" {
		msg = http.StatusText(status)
	}
	var sentinel error
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperr.Validation("", msg)
	case status == http.StatusUnauthorized:
		sentinel = apperr.ErrAuth
	case status == http.StatusForbidden:
		sentinel = apperr.ErrForbidden
	case status == http.StatusNotFound:
		sentinel = apperr.ErrNotFound
	case status == http.StatusConflict:
		sentinel = apperr.ErrConflict
	case status >= http.StatusInternalServerError:
		sentinel = apperr.ErrNetwork
	default:
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, status, msg)
	}
	return fmt.Errorf("%w: %s %s: %s", sentinel, method, path, msg)
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
