package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// AssetRepository implements the asset service's Repository for PostgreSQL
type AssetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sqlx.DB, logger *zap.Logger) *AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("asset-repository"),
	}
}

const assetColumns = `
	id, name, description, asset_type, ticker, quantity,
	unit_price, unit_price_currency, total_value, total_value_currency,
	value_source, source, ai_confidence, ai_rationale, input_method,
	last_refreshed, created_at, updated_at`

// List returns all assets, newest first.
func (r *AssetRepository) List(ctx context.Context) ([]*entities.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.list")
	defer span.End()

	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at DESC`

	var assets []*entities.Asset
	if err := r.db.SelectContext(ctx, &assets, query); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	span.SetAttributes(attribute.Int("asset_count", len(assets)))
	return assets, nil
}

// GetByID retrieves one asset.
func (r *AssetRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.get", trace.WithAttributes(
		attribute.String("asset_id", id.String()),
	))
	defer span.End()

	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset := &entities.Asset{}
	if err := r.db.GetContext(ctx, asset, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("asset not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

// Create inserts a new asset.
func (r *AssetRepository) Create(ctx context.Context, asset *entities.Asset) error {
	ctx, span := r.tracer.Start(ctx, "asset_repo.create", trace.WithAttributes(
		attribute.String("asset_id", asset.ID.String()),
		attribute.String("asset_type", string(asset.AssetType)),
	))
	defer span.End()

	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES (
			:id, :name, :description, :asset_type, :ticker, :quantity,
			:unit_price, :unit_price_currency, :total_value, :total_value_currency,
			:value_source, :source, :ai_confidence, :ai_rationale, :input_method,
			:last_refreshed, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, asset); err != nil {
		span.RecordError(err)
		r.logger.Error("Failed to create asset", zap.Error(err), zap.String("name", asset.Name))
		return fmt.Errorf("failed to create asset: %w", err)
	}

	r.logger.Debug("Asset created", zap.String("asset_id", asset.ID.String()))
	return nil
}

// Update rewrites all mutable columns of one asset.
func (r *AssetRepository) Update(ctx context.Context, asset *entities.Asset) error {
	ctx, span := r.tracer.Start(ctx, "asset_repo.update", trace.WithAttributes(
		attribute.String("asset_id", asset.ID.String()),
	))
	defer span.End()

	query := `
		UPDATE assets SET
			name = :name,
			description = :description,
			asset_type = :asset_type,
			ticker = :ticker,
			quantity = :quantity,
			unit_price = :unit_price,
			unit_price_currency = :unit_price_currency,
			total_value = :total_value,
			total_value_currency = :total_value_currency,
			value_source = :value_source,
			source = :source,
			ai_confidence = :ai_confidence,
			ai_rationale = :ai_rationale,
			last_refreshed = :last_refreshed,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, asset)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update asset: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("asset not found")
	}

	return nil
}

// UpdateBatch applies Update to each asset inside one transaction so a
// price-refresh run lands atomically.
func (r *AssetRepository) UpdateBatch(ctx context.Context, assets []*entities.Asset) error {
	ctx, span := r.tracer.Start(ctx, "asset_repo.update_batch", trace.WithAttributes(
		attribute.Int("asset_count", len(assets)),
	))
	defer span.End()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE assets SET
			quantity = :quantity,
			unit_price = :unit_price,
			unit_price_currency = :unit_price_currency,
			total_value = :total_value,
			total_value_currency = :total_value_currency,
			value_source = :value_source,
			source = :source,
			ai_rationale = :ai_rationale,
			last_refreshed = :last_refreshed,
			updated_at = :updated_at
		WHERE id = :id`

	for _, asset := range assets {
		if _, err := tx.NamedExecContext(ctx, query, asset); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update asset %s: %w", asset.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit batch update: %w", err)
	}

	r.logger.Debug("Asset batch updated", zap.Int("count", len(assets)))
	return nil
}

// Delete removes one asset.
func (r *AssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "asset_repo.delete", trace.WithAttributes(
		attribute.String("asset_id", id.String()),
	))
	defer span.End()

	result, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("asset not found")
	}

	return nil
}

// DeleteBatch removes the selected assets in one statement.
func (r *AssetRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "asset_repo.delete_batch", trace.WithAttributes(
		attribute.Int("asset_count", len(ids)),
	))
	defer span.End()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to bulk delete assets: %w", err)
	}

	r.logger.Debug("Assets bulk deleted", zap.Int("count", len(ids)))
	return nil
}
