package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// NAVHistoryRepository stores the append-only daily NAV series.
type NAVHistoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewNAVHistoryRepository creates a new NAV history repository
func NewNAVHistoryRepository(db *sqlx.DB, logger *zap.Logger) *NAVHistoryRepository {
	return &NAVHistoryRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("nav-history-repository"),
	}
}

type navHistoryRow struct {
	Date            string  `db:"snapshot_date"`
	TotalNAV        float64 `db:"total_nav"`
	DisplayCurrency string  `db:"display_currency"`
}

// List returns all snapshots in date order.
func (r *NAVHistoryRepository) List(ctx context.Context) ([]entities.NAVHistoryEntry, error) {
	ctx, span := r.tracer.Start(ctx, "nav_history_repo.list")
	defer span.End()

	query := `
		SELECT to_char(snapshot_date, 'YYYY-MM-DD') AS snapshot_date, total_nav, display_currency
		FROM nav_history
		ORDER BY snapshot_date ASC`

	var rows []navHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list NAV history: %w", err)
	}

	entries := make([]entities.NAVHistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = entities.NAVHistoryEntry{
			Date:            row.Date,
			TotalNAV:        row.TotalNAV,
			DisplayCurrency: row.DisplayCurrency,
		}
	}

	span.SetAttributes(attribute.Int("entry_count", len(entries)))
	return entries, nil
}

// Append records a snapshot unless one already exists for its date. The
// first write of a day wins; later writes are silently ignored.
func (r *NAVHistoryRepository) Append(ctx context.Context, entry entities.NAVHistoryEntry) error {
	ctx, span := r.tracer.Start(ctx, "nav_history_repo.append", trace.WithAttributes(
		attribute.String("snapshot_date", entry.Date),
	))
	defer span.End()

	query := `
		INSERT INTO nav_history (snapshot_date, total_nav, display_currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (snapshot_date) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, entry.Date, entry.TotalNAV, entry.DisplayCurrency)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append NAV snapshot: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		r.logger.Info("NAV snapshot recorded",
			zap.String("date", entry.Date),
			zap.Float64("total_nav", entry.TotalNAV))
	}
	return nil
}
