package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

const (
	fxSnapshotKey = "fx:snapshot"
	// Snapshots outlive their freshness window on purpose: a stale snapshot
	// is still the fallback when the upstream is down.
	fxSnapshotTTL = 7 * 24 * time.Hour
)

// FXStore persists FX snapshots in Redis. Implements the FX service's
// SnapshotStore.
type FXStore struct {
	cache  *Cache
	logger *zap.Logger
}

func NewFXStore(cache *Cache, logger *zap.Logger) *FXStore {
	return &FXStore{cache: cache, logger: logger}
}

// Get returns the stored snapshot, or (nil, nil) when none exists.
func (s *FXStore) Get(ctx context.Context) (*entities.FXSnapshot, error) {
	raw, err := s.cache.Get(ctx, fxSnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read FX snapshot: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var snapshot entities.FXSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// A corrupt snapshot is treated as a miss so the service refetches.
		s.logger.Warn("discarding undecodable FX snapshot", zap.Error(err))
		return nil, nil
	}
	return &snapshot, nil
}

// Set stores the snapshot.
func (s *FXStore) Set(ctx context.Context, snapshot *entities.FXSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode FX snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, fxSnapshotKey, raw, fxSnapshotTTL); err != nil {
		return fmt.Errorf("failed to store FX snapshot: %w", err)
	}
	return nil
}
