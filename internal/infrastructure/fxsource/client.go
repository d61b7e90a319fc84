package fxsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/pkg/circuitbreaker"
)

const (
	defaultBaseURL = "https://api.frankfurter.app"
	// The free tier occasionally stalls; bound the wait so the dashboard
	// falls back to cached rates instead of hanging.
	defaultTimeout = 8 * time.Second
)

// Client fetches USD-based exchange rates from the Frankfurter API.
// Implements the FX service's RateSource.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate endpoint, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.client.Timeout = timeout }
}

func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		breaker: circuitbreaker.New("fxsource", circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns units-per-USD for every currency the upstream quotes.
func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchLatest(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]float64), nil
}

func (c *Client) fetchLatest(ctx context.Context) (map[string]float64, error) {
	endpoint := c.baseURL + "/latest?from=USD"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create FX request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FX request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FX endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read FX response: %w", err)
	}

	var latest latestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return nil, fmt.Errorf("failed to decode FX response: %w", err)
	}
	if len(latest.Rates) == 0 {
		return nil, fmt.Errorf("FX response carried no rates")
	}

	c.logger.Debug("FX rates fetched",
		zap.Int("currencies", len(latest.Rates)),
		zap.String("as_of", latest.Date))

	return latest.Rates, nil
}
