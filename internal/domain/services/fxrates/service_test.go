package fxrates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

type fakeStore struct {
	snapshot *entities.FXSnapshot
	getErr   error
	setErr   error
	sets     int
}

func (f *fakeStore) Get(ctx context.Context) (*entities.FXSnapshot, error) {
	return f.snapshot, f.getErr
}

func (f *fakeStore) Set(ctx context.Context, s *entities.FXSnapshot) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.snapshot = s
	return nil
}

type fakeSource struct {
	rates   map[string]float64
	err     error
	fetches int
}

func (f *fakeSource) FetchRates(ctx context.Context) (map[string]float64, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(f.rates))
	for k, v := range f.rates {
		out[k] = v
	}
	return out, nil
}

func newTestService(store *fakeStore, source *fakeSource, at time.Time) *Service {
	svc := NewService(store, source, zap.NewNop())
	svc.now = func() time.Time { return at }
	return svc
}

func TestGetRatesReturnsFreshCacheWithoutFetching(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{snapshot: &entities.FXSnapshot{
		Rates:     map[string]float64{"USD": 1, "EUR": 0.92},
		FetchedAt: now.Add(-30 * time.Minute),
	}}
	source := &fakeSource{rates: map[string]float64{"EUR": 0.95}}

	svc := newTestService(store, source, now)
	snap := svc.GetRates(context.Background())

	assert.Equal(t, 0.92, snap.Rates["EUR"])
	assert.Zero(t, source.fetches)
}

func TestGetRatesRefetchesStaleCache(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{snapshot: &entities.FXSnapshot{
		Rates:     map[string]float64{"USD": 1, "EUR": 0.92},
		FetchedAt: now.Add(-61 * time.Minute),
	}}
	source := &fakeSource{rates: map[string]float64{"EUR": 0.95, "ZAR": 18.1}}

	svc := newTestService(store, source, now)
	snap := svc.GetRates(context.Background())

	assert.Equal(t, 1, source.fetches)
	assert.Equal(t, 0.95, snap.Rates["EUR"])
	assert.Equal(t, float64(1), snap.Rates["USD"], "USD key is always injected")
	assert.Equal(t, now, snap.FetchedAt)
	assert.Equal(t, 1, store.sets)
}

func TestGetRatesFallsBackToStaleCacheOnFetchFailure(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	stale := &entities.FXSnapshot{
		Rates:     map[string]float64{"USD": 1, "EUR": 0.92},
		FetchedAt: now.Add(-2 * time.Hour),
	}
	store := &fakeStore{snapshot: stale}
	source := &fakeSource{err: errors.New("upstream down")}

	svc := newTestService(store, source, now)
	snap := svc.GetRates(context.Background())

	assert.Equal(t, stale, snap)
}

func TestGetRatesDegradesToUSDOnlyWhenNothingCached(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	source := &fakeSource{err: errors.New("timeout")}

	svc := newTestService(store, source, now)
	snap := svc.GetRates(context.Background())

	require.NotNil(t, snap)
	assert.Equal(t, map[string]float64{"USD": 1}, snap.Rates)
	assert.Equal(t, now, snap.FetchedAt)
}

func TestGetRatesSurvivesStoreErrors(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	source := &fakeSource{rates: map[string]float64{"EUR": 0.95}}

	svc := newTestService(store, source, now)
	snap := svc.GetRates(context.Background())

	assert.Equal(t, 0.95, snap.Rates["EUR"])
}
