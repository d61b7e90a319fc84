package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// GoalRepository stores the single savings goal. The table holds at most
// one row, keyed by a constant id.
type GoalRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *sqlx.DB, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("goal-repository"),
	}
}

// Get returns the goal, or (nil, nil) when none is set.
func (r *GoalRepository) Get(ctx context.Context) (*entities.FinancialGoal, error) {
	ctx, span := r.tracer.Start(ctx, "goal_repo.get")
	defer span.End()

	query := `SELECT target_amount, currency, updated_at FROM financial_goals WHERE id = 1`

	goal := &entities.FinancialGoal{}
	if err := r.db.GetContext(ctx, goal, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	return goal, nil
}

// Set upserts the goal.
func (r *GoalRepository) Set(ctx context.Context, goal *entities.FinancialGoal) error {
	ctx, span := r.tracer.Start(ctx, "goal_repo.set", trace.WithAttributes(
		attribute.String("currency", goal.Currency),
	))
	defer span.End()

	query := `
		INSERT INTO financial_goals (id, target_amount, currency, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			target_amount = EXCLUDED.target_amount,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, goal.TargetAmount, goal.Currency, goal.UpdatedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set goal: %w", err)
	}

	r.logger.Info("Goal updated",
		zap.String("target", goal.TargetAmount.String()),
		zap.String("currency", goal.Currency))
	return nil
}

// Clear removes the goal.
func (r *GoalRepository) Clear(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "goal_repo.clear")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM financial_goals WHERE id = 1`); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear goal: %w", err)
	}
	return nil
}
