// Package httpclient is the retrying, timeout-bounded HTTP client shared by
// every fetcher and by the embed/thumbnail probes.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"avinfo/internal/logger"
)

const (
	// MaxResponseSize caps how much of a response body is read (16MB).
	MaxResponseSize = 16 * 1024 * 1024

	// UserAgent is sent with every request.
	UserAgent = "avinfo-ingest/1.0"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// FinalURL is the request URL after redirects.
	FinalURL string
}

type Client struct {
	http    *http.Client
	policy  Policy
	limiter *rate.Limiter
	log     *logger.Logger
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(policy Policy, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{},
		policy: policy,
		log:    logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Policy returns the retry policy the client was built with.
func (c *Client) Policy() Policy { return c.policy }

type requestOptions struct {
	header    http.Header
	allowed   map[int]bool
	retryable func(int) bool
}

type RequestOption func(*requestOptions)

func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.header.Set(key, value) }
}

// AllowStatus makes the listed non-2xx statuses come back as a Response
// instead of an *HTTPError.
func AllowStatus(codes ...int) RequestOption {
	return func(o *requestOptions) {
		for _, code := range codes {
			o.allowed[code] = true
		}
	}
}

// RetryOn replaces the retryable-status predicate.
func RetryOn(fn func(status int) bool) RequestOption {
	return func(o *requestOptions) { o.retryable = fn }
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, opts...)
}

func (c *Client) Head(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodHead, url, opts...)
}

// Do sends a body-less request under the client's retry policy.
func (c *Client) Do(ctx context.Context, method, url string, opts ...RequestOption) (*Response, error) {
	ro := &requestOptions{
		header:    http.Header{},
		allowed:   map[int]bool{},
		retryable: DefaultRetryable,
	}
	for _, o := range opts {
		o(ro)
	}

	op := func(actx context.Context) (*Response, error) {
		resp, err := c.send(actx, method, url, nil, ro)
		if err == nil {
			return resp, nil
		}
		var he *HTTPError
		if errors.As(err, &he) && !ro.retryable(he.StatusCode) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying request", "method", method, "url", url, "wait", wait, "error", err)
	}
	return retry(ctx, c.policy, op, notify)
}

// PostJSON sends payload once. Notifications go through here and are never retried.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (*Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	ro := &requestOptions{header: http.Header{}, allowed: map[int]bool{}}
	ro.header.Set("Content-Type", "application/json")

	actx, cancel := context.WithTimeout(ctx, c.policy.timeout())
	defer cancel()
	return c.send(actx, http.MethodPost, url, raw, ro)
}

func (c *Client) send(ctx context.Context, method, url string, body []byte, ro *requestOptions) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range ro.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		FinalURL:   resp.Request.URL.String(),
	}
	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || ro.allowed[resp.StatusCode] {
		return out, nil
	}
	return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
}
