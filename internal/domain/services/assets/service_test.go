package assets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

type fakeRepo struct {
	mu      sync.Mutex
	assets  []*entities.Asset
	batches [][]*entities.Asset
	deleted []uuid.UUID
}

func (f *fakeRepo) List(ctx context.Context) ([]*entities.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entities.Asset, len(f.assets))
	copy(out, f.assets)
	return out, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, errors.New("asset not found")
}

func (f *fakeRepo) Create(ctx context.Context, a *entities.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, a)
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, a *entities.Asset) error { return nil }

func (f *fakeRepo) UpdateBatch(ctx context.Context, assets []*entities.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, assets)
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*Quote
	errs   map[string]error
	seen   []string
}

func (f *fakeQuotes) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	f.mu.Lock()
	f.seen = append(f.seen, ticker)
	f.mu.Unlock()
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	if q, ok := f.quotes[ticker]; ok {
		return q, nil
	}
	return nil, errors.New("unknown symbol")
}

type fakeEstimator struct {
	estimate *ValueEstimate
	err      error
}

func (f *fakeEstimator) EstimateValue(ctx context.Context, asset *entities.Asset, preferredCurrency string) (*ValueEstimate, error) {
	return f.estimate, f.err
}

type staticRates struct {
	rates map[string]float64
}

func (s *staticRates) GetRates(ctx context.Context) *entities.FXSnapshot {
	return &entities.FXSnapshot{Rates: s.rates, FetchedAt: time.Now()}
}

func newTestService(repo *fakeRepo, quotes *fakeQuotes, estimator *fakeEstimator) *Service {
	svc := NewService(repo, &staticRates{rates: map[string]float64{"USD": 1, "ZAR": 18.5}}, quotes, estimator, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }
	return svc
}

func stored(name string, assetType entities.AssetType, ticker string, quantity, totalValue float64) *entities.Asset {
	a := &entities.Asset{
		ID:                 uuid.New(),
		Name:               name,
		AssetType:          assetType,
		Quantity:           quantity,
		TotalValue:         totalValue,
		TotalValueCurrency: "USD",
		UnitPriceCurrency:  "USD",
	}
	if quantity != 0 {
		a.UnitPrice = totalValue / quantity
	}
	if ticker != "" {
		a.Ticker = &ticker
	}
	return a
}

func TestCreateFillsValuationTriangle(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	a, err := svc.Create(context.Background(), CreateInput{
		Name:               "Savings",
		AssetType:          entities.AssetTypeCash,
		TotalValue:         1200,
		TotalValueCurrency: "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1), a.Quantity, "quantity defaults to 1")
	assert.InDelta(t, 1200, a.UnitPrice, 1e-9)
	assert.Equal(t, "USD", a.UnitPriceCurrency)
	assert.Equal(t, entities.ValueSourceManual, a.ValueSource)
	assert.Equal(t, entities.InputMethodManual, a.InputMethod)
	require.Len(t, repo.assets, 1)
}

func TestCreateDerivesTotalFromQuantityAndPrice(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeQuotes{}, &fakeEstimator{})

	a, err := svc.Create(context.Background(), CreateInput{
		Name:               "AAPL",
		AssetType:          entities.AssetTypeStock,
		Quantity:           10,
		UnitPrice:          150,
		TotalValueCurrency: "USD",
	})
	require.NoError(t, err)
	assert.InDelta(t, 1500, a.TotalValue, 1e-9)
}

func TestCreateNormalizesUnknownType(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeQuotes{}, &fakeEstimator{})

	a, err := svc.Create(context.Background(), CreateInput{
		Name:               "Watch collection",
		AssetType:          "collectible",
		TotalValue:         5000,
		TotalValueCurrency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.AssetTypeOther, a.AssetType)
}

func TestListValueSortConvertsCurrencies(t *testing.T) {
	small := stored("Small USD", entities.AssetTypeCash, "", 1, 100)
	big := stored("Big ZAR", entities.AssetTypeCash, "", 1, 18500) // 1000 USD
	big.TotalValueCurrency = "ZAR"
	repo := &fakeRepo{assets: []*entities.Asset{small, big}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	out, err := svc.List(context.Background(), entities.SortValueDesc, "USD")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Big ZAR", out[0].Name, "ZAR asset is worth more in USD terms")
}

func TestListNameSortIsCaseInsensitive(t *testing.T) {
	repo := &fakeRepo{assets: []*entities.Asset{
		stored("zebra fund", entities.AssetTypeStock, "", 1, 1),
		stored("Apple", entities.AssetTypeStock, "", 1, 1),
	}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	out, err := svc.List(context.Background(), entities.SortNameAsc, "USD")
	require.NoError(t, err)
	assert.Equal(t, "Apple", out[0].Name)
}

func TestConfirmDraftsCreatesNewAssets(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	result, err := svc.ConfirmDrafts(context.Background(), []entities.ParsedAsset{
		{Name: "Bitcoin", AssetType: entities.AssetTypeCrypto, Quantity: 0.5, TotalValue: 20000, TotalValueCurrency: "USD"},
	}, entities.InputMethodText)
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	assert.Empty(t, result.Merged)
	created := result.Created[0]
	assert.Equal(t, entities.InputMethodText, created.InputMethod)
	assert.InDelta(t, 40000, created.UnitPrice, 1e-9, "unit price derived from total/quantity")
	assert.Equal(t, entities.ValueSourceAIEstimate, created.ValueSource)
}

func TestConfirmDraftsMergesByNameAndType(t *testing.T) {
	easyEq := "Easy Equities"
	existing := stored("bitcoin", entities.AssetTypeCrypto, "BTC", 1, 40000)
	existing.Source = &easyEq
	repo := &fakeRepo{assets: []*entities.Asset{existing}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	luno := "Luno"
	result, err := svc.ConfirmDrafts(context.Background(), []entities.ParsedAsset{
		{
			Name:               "Bitcoin",
			AssetType:          entities.AssetTypeCrypto,
			Quantity:           0.5,
			TotalValue:         20000,
			TotalValueCurrency: "USD",
			Source:             &luno,
			AIRationale:        "screenshot of Luno balance",
		},
	}, entities.InputMethodScreenshot)
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	require.Len(t, result.Merged, 1)
	merged := result.Merged[0]
	assert.InDelta(t, 1.5, merged.Quantity, 1e-9)
	assert.InDelta(t, 60000, merged.TotalValue, 1e-9)
	assert.InDelta(t, 40000, merged.UnitPrice, 1e-9)
	require.NotNil(t, merged.Source)
	assert.Equal(t, "Easy Equities, Luno", *merged.Source)
	require.NotNil(t, merged.AIRationale)
	assert.Equal(t, "screenshot of Luno balance", *merged.AIRationale)
	require.Len(t, repo.batches, 1, "merges land in one batched update")
}

func TestConfirmDraftsDoesNotMergeAcrossTypes(t *testing.T) {
	existing := stored("Tesla", entities.AssetTypeStock, "TSLA", 2, 500)
	repo := &fakeRepo{assets: []*entities.Asset{existing}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	result, err := svc.ConfirmDrafts(context.Background(), []entities.ParsedAsset{
		{Name: "Tesla", AssetType: entities.AssetTypeVehicle, TotalValue: 30000, TotalValueCurrency: "USD"},
	}, entities.InputMethodText)
	require.NoError(t, err)

	assert.Len(t, result.Created, 1)
	assert.Empty(t, result.Merged)
}

func TestConfirmDraftsMergesDuplicateDraftsInOneBatch(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	result, err := svc.ConfirmDrafts(context.Background(), []entities.ParsedAsset{
		{Name: "Ethereum", AssetType: entities.AssetTypeCrypto, Quantity: 1, TotalValue: 3000, TotalValueCurrency: "USD"},
		{Name: "ethereum", AssetType: entities.AssetTypeCrypto, Quantity: 2, TotalValue: 6000, TotalValueCurrency: "USD"},
	}, entities.InputMethodText)
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	require.Len(t, result.Merged, 1)
	assert.InDelta(t, 3, result.Merged[0].Quantity, 1e-9)
	assert.InDelta(t, 9000, result.Merged[0].TotalValue, 1e-9)
}

func TestRefreshPricesUpdatesTickeredHoldings(t *testing.T) {
	apple := stored("Apple", entities.AssetTypeStock, "AAPL", 10, 1500)
	bitcoin := stored("Bitcoin", entities.AssetTypeCrypto, "BTC", 2, 80000)
	house := stored("House", entities.AssetTypeProperty, "", 1, 500000)
	repo := &fakeRepo{assets: []*entities.Asset{apple, bitcoin, house}}
	quotes := &fakeQuotes{quotes: map[string]*Quote{
		"AAPL":    {Price: 180, Currency: "USD"},
		"BTC-USD": {Price: 45000, Currency: "USD"},
	}}
	svc := newTestService(repo, quotes, &fakeEstimator{})

	result, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Refreshed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.InDelta(t, 1800, apple.TotalValue, 1e-9)
	assert.InDelta(t, 90000, bitcoin.TotalValue, 1e-9)
	assert.Equal(t, entities.ValueSourceLivePrice, apple.ValueSource)
	require.Len(t, repo.batches, 1, "all updates land in a single batch")
	assert.Contains(t, quotes.seen, "BTC-USD", "crypto tickers get the -USD suffix")
}

func TestRefreshPricesToleratesPartialFailure(t *testing.T) {
	apple := stored("Apple", entities.AssetTypeStock, "AAPL", 10, 1500)
	broken := stored("Delisted", entities.AssetTypeStock, "GONE", 5, 100)
	repo := &fakeRepo{assets: []*entities.Asset{apple, broken}}
	quotes := &fakeQuotes{
		quotes: map[string]*Quote{"AAPL": {Price: 180, Currency: "USD"}},
		errs:   map[string]error{"GONE": errors.New("upstream 404")},
	}
	svc := newTestService(repo, quotes, &fakeEstimator{})

	result, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, 1, result.Failed)
	assert.InDelta(t, 20, broken.UnitPrice, 1e-9, "failed lookup leaves the asset untouched")
}

func TestRefreshPricesRejectsNonPositivePrice(t *testing.T) {
	apple := stored("Apple", entities.AssetTypeStock, "AAPL", 10, 1500)
	repo := &fakeRepo{assets: []*entities.Asset{apple}}
	quotes := &fakeQuotes{quotes: map[string]*Quote{"AAPL": {Price: 0, Currency: "USD"}}}
	svc := newTestService(repo, quotes, &fakeEstimator{})

	result, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.InDelta(t, 150, apple.UnitPrice, 1e-9)
}

func TestRefreshPricesWithNothingToDo(t *testing.T) {
	repo := &fakeRepo{assets: []*entities.Asset{stored("House", entities.AssetTypeProperty, "", 1, 500000)}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	result, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Refreshed)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, repo.batches)
}

func TestReestimateAppliesEstimate(t *testing.T) {
	car := stored("Toyota Corolla", entities.AssetTypeVehicle, "", 1, 12000)
	repo := &fakeRepo{assets: []*entities.Asset{car}}
	estimator := &fakeEstimator{estimate: &ValueEstimate{
		UnitPrice:         11000,
		UnitPriceCurrency: "USD",
		TotalValue:        11000,
		Confidence:        entities.AIConfidenceMedium,
		Rationale:         "2019 model with average mileage",
	}}
	svc := newTestService(repo, &fakeQuotes{}, estimator)

	updated, err := svc.Reestimate(context.Background(), car.ID, "USD")
	require.NoError(t, err)

	assert.InDelta(t, 11000, updated.TotalValue, 1e-9)
	assert.Equal(t, entities.ValueSourceAIEstimate, updated.ValueSource)
	require.NotNil(t, updated.AIConfidence)
	assert.Equal(t, entities.AIConfidenceMedium, *updated.AIConfidence)
}

func TestReestimatePropagatesEstimatorError(t *testing.T) {
	car := stored("Toyota Corolla", entities.AssetTypeVehicle, "", 1, 12000)
	repo := &fakeRepo{assets: []*entities.Asset{car}}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{err: errors.New("quota exhausted")})

	_, err := svc.Reestimate(context.Background(), car.ID, "USD")
	require.Error(t, err)
	assert.InDelta(t, 12000, car.TotalValue, 1e-9, "asset untouched on failure")
}

func TestBulkDeleteIgnoresEmptySelection(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeQuotes{}, &fakeEstimator{})

	require.NoError(t, svc.BulkDelete(context.Background(), nil))
	assert.Empty(t, repo.deleted)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	require.NoError(t, svc.BulkDelete(context.Background(), ids))
	assert.Len(t, repo.deleted, 2)
}
