// Package httputil provides a bounded HTTP client for calls to external
// translation and AI providers.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// Client wraps http.Client with JSON helpers and a retry on transient
// upstream failures.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// Config configures the client.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a client with sane defaults (30s timeout, 2 retries).
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Do executes a request with the given headers and JSON body, retrying on
// 429 and 5xx responses.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body interface{}) (*http.Response, error) {
	return c.doWithRetry(ctx, method, url, headers, body, 0)
}

func (c *Client) doWithRetry(ctx context.Context, method, url string, headers map[string]string, body interface{}, attempt int) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if retryable(resp.StatusCode) && attempt < c.maxRetries {
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 250 * time.Millisecond):
		}
		return c.doWithRetry(ctx, method, url, headers, body, attempt+1)
	}
	return resp, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// GetJSON performs a GET and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, target)
}

// PostJSON performs a POST with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, target interface{}) error {
	resp, err := c.Do(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, target)
}

// PostJSONRaw performs a POST with a JSON body and returns the raw response
// body. Callers that parse responses with gjson use this.
func (c *Client) PostJSONRaw(ctx context.Context, url string, headers map[string]string, body interface{}) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}
	raw, err := ReadAllStrict(resp.Body, maxResponseBody)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return raw, nil
}

// DecodeResponse decodes a JSON response into the target struct.
func DecodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if target == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody)); err != nil {
			return fmt.Errorf("discard response body: %w", err)
		}
		return nil
	}

	body, err := ReadAllStrict(resp.Body, maxResponseBody)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, truncated, err := ReadAllWithLimit(resp.Body, maxErrorBody)
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	msg := strings.TrimSpace(string(body))
	if truncated {
		msg += "...(truncated)"
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
}

// ReadAllWithLimit reads at most limit bytes and reports whether the body was
// truncated.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

// ReadAllStrict reads the whole body, failing if it exceeds limit bytes.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	body, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}
