// Package httpclient wraps net/http with the defaults the scrapers
// need: a shared timeout, a custom User-Agent, and retry with backoff
// for transient failures.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
	userAgent  string
	retry      RetryConfig
}

// New creates a client with the given timeout and User-Agent. A zero
// timeout falls back to 30s; an empty userAgent is left unset.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		retry:      DefaultRetryConfig,
	}
}

// WithRetry overrides the retry policy.
func (c *Client) WithRetry(rc RetryConfig) *Client {
	c.retry = rc
	return c
}

// Get performs a GET with retry. Callers own the response body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req, headers)
		return c.httpClient.Do(req)
	})
}

// Post performs a POST with retry. The body is re-read on each attempt,
// so it must come from the bodyFn factory.
func (c *Client) Post(ctx context.Context, url string, bodyFn func() io.Reader, headers map[string]string) (*http.Response, error) {
	return RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		var body io.Reader
		if bodyFn != nil {
			body = bodyFn()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req, headers)
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request, headers map[string]string) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}
