package wishclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/livetemplate/newyear/internal/config"
)

const maxResponseSize = 1 << 20

// Client is the HTTP client of the wish API. Fetches go through the circuit
// breaker and are retried; saves go through the breaker once and are never
// retried.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	breaker *CircuitBreaker
}

// New creates a client for the API at baseURL with default retry and breaker settings
func New(baseURL string) *Client {
	return NewWithConfig(baseURL, config.ClientConfig{})
}

// NewWithConfig creates a client using the timeout and retry settings of cfg
func NewWithConfig(baseURL string, cfg config.ClientConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: cfg.GetTimeout()},
		retry: RetryConfig{
			MaxRetries: cfg.GetRetryMaxRetries(),
			BaseDelay:  cfg.GetRetryBaseDelay(),
			MaxDelay:   cfg.GetRetryMaxDelay(),
			Multiplier: 2.0,
			EnableLog:  true,
		},
		breaker: NewCircuitBreaker(baseURL, DefaultCircuitBreakerConfig()),
	}
}

// BaseURL returns the API address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Breaker exposes the circuit breaker, mainly for status output
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// Fetch returns the wishes stored for name, in storage order.
func (c *Client) Fetch(ctx context.Context, name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "name is required"}
	}

	var wishes []string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		wishes, err = withRetry(ctx, "fetch", c.retry, func(ctx context.Context) ([]string, error) {
			return c.doFetch(ctx, name)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return wishes, nil
}

func (c *Client) doFetch(ctx context.Context, name string) ([]string, error) {
	endpoint := c.baseURL + "/wish?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ClientError{Operation: "fetch", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	var body struct {
		Wishes []string `json:"wishes"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, err
	}
	if body.Wishes == nil {
		body.Wishes = []string{}
	}
	return body.Wishes, nil
}

// Save stores one wish for name. It is attempted exactly once.
func (c *Client) Save(ctx context.Context, name, wish string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}

	payload, err := json.Marshal(map[string]string{"name": name, "wish": wish})
	if err != nil {
		return &ClientError{Operation: "save", Err: err}
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wish", bytes.NewReader(payload))
		if err != nil {
			return &ClientError{Operation: "save", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.do(req, nil)
	})
}

// do sends req and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &ConnectionError{Address: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &ConnectionError{Address: c.baseURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &body)
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: body.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Field: "response", Reason: "could not parse response as JSON"}
	}
	return nil
}
