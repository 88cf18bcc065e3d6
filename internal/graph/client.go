// Package graph is a small HTTP client for Meta's Graph API and its OAuth hosts.
//
// A Client is bound to one base URL and an optional version segment, so the
// versioned Graph API, the unversioned token endpoints and the Instagram OAuth
// host each get their own instance. Idempotent requests (GET, DELETE) are
// retried on transport errors, 429 and 5xx with linear backoff; POST is never
// retried because authorization codes are single use.
package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metabridge/graph-connector/internal/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 10 << 20
)

type Options struct {
	// Provider labels logs and metrics ("facebook", "instagram").
	Provider      string
	BaseURL       string
	Version       string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	Metrics       *metrics.Metrics
	HTTPClient    *http.Client
}

type Client struct {
	httpClient    *http.Client
	provider      string
	baseURL       string
	version       string
	retryAttempts int
	retryBackoff  time.Duration
	metrics       *metrics.Metrics
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	retries := opts.RetryAttempts
	if retries < 0 {
		retries = 0
	}

	return &Client{
		httpClient:    httpClient,
		provider:      opts.Provider,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		version:       strings.Trim(opts.Version, "/"),
		retryAttempts: retries,
		retryBackoff:  opts.RetryBackoff,
		metrics:       opts.Metrics,
	}
}

// Request describes one Graph call. ExtraQuery is merged over Query.
type Request struct {
	Method     string
	Path       string
	Query      url.Values
	Body       Body
	ExtraQuery url.Values
}

// URL builds the absolute request URL for path and query.
func (c *Client) URL(path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	if c.version != "" {
		b.WriteString("/")
		b.WriteString(c.version)
	}
	b.WriteString("/")
	b.WriteString(strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		b.WriteString("?")
		b.WriteString(query.Encode())
	}
	return b.String()
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Do executes req and returns the response for any 2xx status. Any other
// status or a transport failure yields an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(req.Path, mergeQuery(req.Query, req.ExtraQuery))

	attempts := 1
	if isIdempotent(method) {
		attempts += c.retryAttempts
	}

	start := time.Now()
	var lastErr *APIError
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.metrics.RecordGraphRetry(c.provider)
			if err := sleepContext(ctx, c.retryBackoff*time.Duration(attempt)); err != nil {
				lastErr = &APIError{Err: err}
				break
			}
		}

		resp, err := c.send(ctx, method, target, req.Body)
		if err == nil {
			c.metrics.RecordGraphRequest(c.provider, method, "success", time.Since(start).Seconds())
			return resp, nil
		}

		lastErr = err
		if !err.Retryable() || ctx.Err() != nil || attempt+1 >= attempts {
			break
		}
		log.Warn().
			Err(err).
			Str("provider", c.provider).
			Str("method", method).
			Str("path", req.Path).
			Int("attempt", attempt+1).
			Int("maxAttempts", attempts).
			Msg("Graph API request failed, retrying")
	}

	c.metrics.RecordGraphRequest(c.provider, method, "error", time.Since(start).Seconds())
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, target string, body Body) (*Response, *APIError) {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		payload, err := body.Encode()
		if err != nil {
			return nil, &APIError{Err: fmt.Errorf("encode request body: %w", err)}
		}
		reader = bytes.NewReader(payload)
		contentType = body.ContentType()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Str("provider", c.provider).Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Graph API response")
		return nil, &APIError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	log.Debug().Str("provider", c.provider).Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Graph API response")

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &APIError{Status: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, newAPIError(httpResp.StatusCode, raw)
	}

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Raw: raw}, nil
}

func mergeQuery(query, extra url.Values) url.Values {
	if len(query) == 0 && len(extra) == 0 {
		return nil
	}
	merged := url.Values{}
	for k, v := range query {
		merged[k] = append([]string(nil), v...)
	}
	for k, v := range extra {
		merged[k] = append([]string(nil), v...)
	}
	return merged
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
