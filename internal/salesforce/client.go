package salesforce

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/forcelens/forcelens/internal/metrics"
)

// Client executes authenticated requests against the configured
// instance. Every request obtains the current bearer credential from the
// token manager and goes through the resilience pipeline; a response
// classified as an authentication failure triggers exactly one
// invalidate-and-reissue retry before propagating as fatal.
//
// A single Client is safe for concurrent use; the token cache and the
// breaker are its only shared mutable state and both guard themselves.
type Client struct {
	Config     Config
	Tokens     *TokenManager
	Pipeline   *Pipeline
	HTTPClient *http.Client
}

// NewClient wires a client, token manager, and pipeline from one config.
func NewClient(cfg Config) *Client {
	client := &Client{
		Config:   cfg,
		Tokens:   NewTokenManager(cfg),
		Pipeline: NewPipeline(cfg.Resilience),
	}
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		client.Tokens.HTTPClient = client.HTTPClient
	}
	return client
}

// Do sends one authenticated request. path must be instance-relative and
// begin with a slash.
func (c *Client) Do(ctx context.Context, method, path string) (*Result, error) {
	res, err := c.execute(ctx, method, path)
	if err != nil {
		metrics.RecordAPIRequest(method, string(KindOf(err)))
		return nil, err
	}
	metrics.RecordAPIRequest(method, "success")
	return res, nil
}

// The authentication retry is a bounded loop, not recursion: the second
// pass runs with a freshly reissued token and a second authentication
// failure is final.
func (c *Client) execute(ctx context.Context, method, path string) (*Result, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		res, err := c.Pipeline.Execute(ctx, c.send(method, path, token))
		if err == nil {
			return res, nil
		}
		lastErr = err

		if KindOf(err) != KindAuthentication || attempt > 0 {
			return nil, err
		}
		c.Tokens.Invalidate()
	}

	return nil, lastErr
}

// Get is shorthand for Do with GET.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Do(ctx, http.MethodGet, path)
}

// send adapts one HTTP attempt to the pipeline's transport-agnostic
// SendFunc, reading the body fully so classification can see it.
func (c *Client) send(method, path, token string) SendFunc {
	return func(ctx context.Context) (*Result, error) {
		url := strings.TrimRight(c.Config.InstanceURL, "/") + path
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		httpClient := c.HTTPClient
		if httpClient == nil {
			httpClient = http.DefaultClient
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		return &Result{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}, nil
	}
}
