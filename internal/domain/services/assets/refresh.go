package assets

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// Quote is a live market price in its quote currency.
type Quote struct {
	Price    float64
	Currency string
}

// QuoteProvider fetches a live quote for one ticker symbol.
type QuoteProvider interface {
	GetQuote(ctx context.Context, ticker string) (*Quote, error)
}

// refreshWorkers bounds the concurrent quote lookups per refresh run.
const refreshWorkers = 4

// RefreshResult summarizes a price refresh run.
type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RefreshPrices updates unit prices for every stock and crypto holding that
// carries a ticker. Lookups fan out over a small worker pool; individual
// failures are logged and counted but never fail the run. All successful
// updates land in one batched write.
func (s *Service) RefreshPrices(ctx context.Context) (*RefreshResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var refreshable []*entities.Asset
	result := &RefreshResult{}
	for _, a := range all {
		if isRefreshable(a) {
			refreshable = append(refreshable, a)
		} else {
			result.Skipped++
		}
	}
	if len(refreshable) == 0 {
		return result, nil
	}

	type outcome struct {
		asset *entities.Asset
		ok    bool
	}

	jobs := make(chan *entities.Asset)
	outcomes := make(chan outcome, len(refreshable))

	var wg sync.WaitGroup
	for i := 0; i < refreshWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				outcomes <- outcome{asset: a, ok: s.refreshOne(ctx, a)}
			}
		}()
	}

	for _, a := range refreshable {
		jobs <- a
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	var updated []*entities.Asset
	for o := range outcomes {
		if o.ok {
			updated = append(updated, o.asset)
			result.Refreshed++
		} else {
			result.Failed++
		}
	}

	if len(updated) > 0 {
		if err := s.repo.UpdateBatch(ctx, updated); err != nil {
			return nil, err
		}
	}

	s.logger.Info("price refresh completed",
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func isRefreshable(a *entities.Asset) bool {
	if a.Ticker == nil || strings.TrimSpace(*a.Ticker) == "" {
		return false
	}
	return a.AssetType == entities.AssetTypeStock || a.AssetType == entities.AssetTypeCrypto
}

// refreshOne fetches a quote and applies it in place. Reports false when
// the lookup fails or returns an unusable price.
func (s *Service) refreshOne(ctx context.Context, a *entities.Asset) bool {
	symbol := quoteSymbol(a)

	quote, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn("quote lookup failed",
			zap.String("ticker", symbol),
			zap.Error(err))
		return false
	}
	if quote.Price <= 0 {
		s.logger.Warn("quote returned non-positive price", zap.String("ticker", symbol))
		return false
	}

	now := s.now()
	a.UnitPrice = quote.Price
	if quote.Currency != "" {
		a.UnitPriceCurrency = quote.Currency
		a.TotalValueCurrency = quote.Currency
	}
	a.TotalValue = quote.Price * a.Quantity
	a.ValueSource = entities.ValueSourceLivePrice
	a.LastRefreshed = now
	a.UpdatedAt = now
	return true
}

// quoteSymbol maps an asset's ticker to the market-data symbol. Crypto
// tickers quote against USD, so a bare "BTC" becomes "BTC-USD".
func quoteSymbol(a *entities.Asset) string {
	symbol := strings.ToUpper(strings.TrimSpace(*a.Ticker))
	if a.AssetType == entities.AssetTypeCrypto && !strings.Contains(symbol, "-") {
		symbol += "-USD"
	}
	return symbol
}
