package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies a bearer token for backend calls. A nil source or
// an empty token means the call goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds the gateway client settings, normally taken from the
// environment resolver.
type Config struct {
	BaseURL       string
	Timeout       time.Duration // per-attempt deadline
	RetryAttempts int
	RetryDelay    time.Duration // multiplied by the attempt number
	Tokens        TokenSource
	HTTPClient    *http.Client
}

// Client is the single outbound HTTP path to the backend. Every call gets
// a per-attempt deadline, error classification, and a bounded retry with a
// linearly increasing delay. Policy (TLS/certificate) failures are never
// retried.
type Client struct {
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	tokens        TokenSource
	httpClient    *http.Client
}

// New creates a gateway client. Zero config fields fall back to
// conservative defaults.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		timeout:       cfg.Timeout,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		tokens:        cfg.Tokens,
		httpClient:    cfg.HTTPClient,
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = 3
	}
	if c.retryDelay <= 0 {
		c.retryDelay = time.Second
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope is the backend's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// request performs one logical backend call, retrying transient failures.
// out, when non-nil, receives the decoded envelope data.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr *Error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		apiErr := c.do(ctx, method, u, payload, out)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr

		if !apiErr.retryable() || attempt == c.retryAttempts {
			return apiErr
		}

		log.Printf("api: %s %s attempt %d/%d failed: %v", method, path, attempt, c.retryAttempts, apiErr)
		select {
		case <-ctx.Done():
			return classify(ctx.Err())
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}

// do performs a single attempt under the configured deadline.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, out interface{}) *Error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, url, reqBody)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(attemptCtx)
		if err != nil {
			log.Printf("api: token unavailable, calling unauthenticated: %v", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}

	var env envelope
	decoded := json.Unmarshal(data, &env) == nil

	if resp.StatusCode >= 400 {
		msg := ""
		if decoded {
			msg = env.Error
		}
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: msg}
	}
	if !decoded {
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: "malformed response body"}
	}
	if !env.Success {
		return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Kind: KindHTTP, Status: resp.StatusCode, Message: "malformed response data", Err: err}
		}
	}
	return nil
}

// get is a convenience wrapper for GET calls.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.request(ctx, http.MethodGet, path, query, nil, out)
}
