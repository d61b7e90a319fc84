package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/pkg/circuitbreaker"
	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

const defaultQuoteBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches live quotes from the Yahoo Finance chart endpoint.
// Implements the asset service's QuoteProvider.
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

func NewClient(timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultQuoteBaseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New("marketdata", circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chartResponse mirrors the slice of the Yahoo payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetQuote fetches the latest price for one symbol. Calls run through a
// circuit breaker so a flapping upstream fails fast during refresh fan-out.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*assets.Quote, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchQuote(ctx, ticker)
	})
	if err != nil {
		metrics.QuoteLookupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.QuoteLookupsTotal.WithLabelValues("success").Inc()
	return result.(*assets.Quote), nil
}

func (c *Client) fetchQuote(ctx context.Context, ticker string) (*assets.Quote, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; wealthvue/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote endpoint returned status %d for %s", resp.StatusCode, ticker)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("quote lookup for %s failed: %s", ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no quote data for %s", ticker)
	}

	meta := chart.Chart.Result[0].Meta
	c.logger.Debug("quote fetched",
		zap.String("ticker", ticker),
		zap.Float64("price", meta.RegularMarketPrice),
		zap.String("currency", meta.Currency))

	return &assets.Quote{
		Price:    meta.RegularMarketPrice,
		Currency: meta.Currency,
	}, nil
}
