package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

type fakeAssetReader struct {
	assets []*entities.Asset
}

func (f *fakeAssetReader) List(ctx context.Context) ([]*entities.Asset, error) {
	return f.assets, nil
}

type fakeHistoryRepo struct {
	entries []entities.NAVHistoryEntry
}

func (f *fakeHistoryRepo) List(ctx context.Context) ([]entities.NAVHistoryEntry, error) {
	return f.entries, nil
}

func (f *fakeHistoryRepo) Append(ctx context.Context, e entities.NAVHistoryEntry) error {
	for _, existing := range f.entries {
		if existing.Date == e.Date {
			return nil
		}
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeGoalReader struct {
	goal *entities.FinancialGoal
}

func (f *fakeGoalReader) Get(ctx context.Context) (*entities.FinancialGoal, error) {
	return f.goal, nil
}

type fakeRateProvider struct {
	snapshot *entities.FXSnapshot
}

func (f *fakeRateProvider) GetRates(ctx context.Context) *entities.FXSnapshot {
	return f.snapshot
}

func newOverviewService(assets []*entities.Asset, history []entities.NAVHistoryEntry, goal *entities.FinancialGoal, rates map[string]float64, at time.Time) (*Service, *fakeHistoryRepo) {
	histRepo := &fakeHistoryRepo{entries: history}
	svc := NewService(
		&fakeAssetReader{assets: assets},
		histRepo,
		&fakeGoalReader{goal: goal},
		&fakeRateProvider{snapshot: &entities.FXSnapshot{Rates: rates, FetchedAt: at}},
		zap.NewNop(),
	)
	svc.now = func() time.Time { return at }
	return svc, histRepo
}

func TestGetOverviewEndToEnd(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	assets := []*entities.Asset{
		asset(entities.AssetTypeStock, 7000, "USD", ""),
		asset(entities.AssetTypeCrypto, 3000, "USD", ""),
	}
	history := []entities.NAVHistoryEntry{
		entry("2024-01-01", 9000),
		entry("2024-01-02", 9500),
	}

	svc, _ := newOverviewService(assets, history, nil, map[string]float64{"USD": 1}, at)
	overview, err := svc.GetOverview(context.Background(), "USD", entities.Period1D, false)
	require.NoError(t, err)

	assert.InDelta(t, 10000, overview.TotalNAV, 1e-9)
	assert.Equal(t, "Equity Devotee", overview.Archetype.Title)
	assert.Equal(t, 2, overview.HoldingsCount)
	require.Len(t, overview.Allocations, 2)
	assert.Equal(t, "stock", overview.Allocations[0].Name)
	assert.InDelta(t, 70, overview.Allocations[0].Percent, 1e-9)
}

func TestGetOverviewRecordsTodaysSnapshotOnce(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	assets := []*entities.Asset{asset(entities.AssetTypeCash, 500, "USD", "")}

	svc, histRepo := newOverviewService(assets, nil, nil, map[string]float64{"USD": 1}, at)

	_, err := svc.GetOverview(context.Background(), "USD", entities.Period1D, false)
	require.NoError(t, err)
	_, err = svc.GetOverview(context.Background(), "USD", entities.Period1D, false)
	require.NoError(t, err)

	require.Len(t, histRepo.entries, 1)
	assert.Equal(t, "2024-01-03", histRepo.entries[0].Date)
	assert.InDelta(t, 500, histRepo.entries[0].TotalNAV, 1e-9)
}

func TestGetOverviewSnapshotIsAlwaysUSD(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	rates := map[string]float64{"USD": 1, "ZAR": 18.5}
	assets := []*entities.Asset{asset(entities.AssetTypeCash, 1850, "ZAR", "")}

	svc, histRepo := newOverviewService(assets, nil, nil, rates, at)
	overview, err := svc.GetOverview(context.Background(), "ZAR", entities.Period1D, false)
	require.NoError(t, err)

	assert.InDelta(t, 1850, overview.TotalNAV, 1e-9)
	require.Len(t, histRepo.entries, 1)
	assert.InDelta(t, 100, histRepo.entries[0].TotalNAV, 1e-9, "history stores USD")
}

func TestGetOverviewWithInsufficientHistoryShowsZeroChange(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	assets := []*entities.Asset{asset(entities.AssetTypeCash, 500, "USD", "")}

	svc, _ := newOverviewService(assets, nil, nil, map[string]float64{"USD": 1}, at)
	overview, err := svc.GetOverview(context.Background(), "USD", entities.Period1W, false)
	require.NoError(t, err)

	assert.Zero(t, overview.Change)
	assert.Zero(t, overview.ChangePercent)
}

func TestGetOverviewGoalProgress(t *testing.T) {
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	assets := []*entities.Asset{asset(entities.AssetTypeCash, 2500, "USD", "")}
	goal := &entities.FinancialGoal{TargetAmount: decimal.NewFromInt(10000), Currency: "USD"}

	svc, _ := newOverviewService(assets, nil, goal, map[string]float64{"USD": 1}, at)
	overview, err := svc.GetOverview(context.Background(), "USD", entities.Period1D, false)
	require.NoError(t, err)

	require.NotNil(t, overview.GoalProgress)
	assert.True(t, overview.GoalProgress.Percent.Equal(decimal.NewFromInt(25)),
		"got %s", overview.GoalProgress.Percent)
}

func TestRecordDailySnapshot(t *testing.T) {
	at := time.Date(2024, 1, 3, 6, 0, 0, 0, time.UTC)
	assets := []*entities.Asset{
		asset(entities.AssetTypeStock, 100, "USD", ""),
		asset(entities.AssetTypeOther, -40, "USD", ""),
	}

	svc, histRepo := newOverviewService(assets, nil, nil, map[string]float64{"USD": 1}, at)
	require.NoError(t, svc.RecordDailySnapshot(context.Background(), "USD"))

	require.Len(t, histRepo.entries, 1)
	assert.InDelta(t, 60, histRepo.entries[0].TotalNAV, 1e-9, "liabilities reduce the snapshot NAV")
}
