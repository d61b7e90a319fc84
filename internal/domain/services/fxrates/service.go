package fxrates

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// SnapshotStore persists the most recent rate snapshot. Implementations
// must return (nil, nil) when no snapshot has been stored yet.
type SnapshotStore interface {
	Get(ctx context.Context) (*entities.FXSnapshot, error)
	Set(ctx context.Context, snapshot *entities.FXSnapshot) error
}

// RateSource fetches a fresh USD-relative rate table from the upstream
// provider.
type RateSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// Service serves exchange rates with a one-hour freshness window and a
// best-effort availability contract: portfolio math never halts for lack
// of FX data.
type Service struct {
	store  SnapshotStore
	source RateSource
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store SnapshotStore, source RateSource, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// GetRates returns a usable rate snapshot, in order of preference: a fresh
// cached snapshot, a newly fetched one, a stale cached one, and finally the
// degenerate USD-only table. It never returns an error.
func (s *Service) GetRates(ctx context.Context) *entities.FXSnapshot {
	now := s.now()

	cached, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("FX snapshot store read failed", zap.Error(err))
		cached = nil
	}
	if cached != nil && cached.IsFresh(now) {
		return cached
	}

	rates, err := s.source.FetchRates(ctx)
	if err != nil {
		metrics.FXFetchesTotal.WithLabelValues("error").Inc()
		s.logger.Warn("FX rate fetch failed, falling back", zap.Error(err))
		if cached != nil {
			return cached
		}
		return entities.DefaultFXSnapshot(now)
	}
	metrics.FXFetchesTotal.WithLabelValues("success").Inc()

	// Upstream quotes everything against USD but does not echo USD itself.
	rates[USD] = 1

	snapshot := &entities.FXSnapshot{Rates: rates, FetchedAt: now}
	if err := s.store.Set(ctx, snapshot); err != nil {
		s.logger.Warn("FX snapshot store write failed", zap.Error(err))
	}
	return snapshot
}
