package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/fxrates"
	"github.com/lukeberetta/wealthvue/internal/domain/services/insights"
	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// AssetReader lists the portfolio's assets.
type AssetReader interface {
	List(ctx context.Context) ([]*entities.Asset, error)
}

// HistoryRepository stores the append-only NAV history, one entry per
// calendar day.
type HistoryRepository interface {
	List(ctx context.Context) ([]entities.NAVHistoryEntry, error)
	// Append records an entry unless one already exists for its date.
	Append(ctx context.Context, entry entities.NAVHistoryEntry) error
}

// GoalReader fetches the savings goal, returning (nil, nil) when unset.
type GoalReader interface {
	Get(ctx context.Context) (*entities.FinancialGoal, error)
}

// RateProvider supplies the current FX snapshot.
type RateProvider interface {
	GetRates(ctx context.Context) *entities.FXSnapshot
}

// Service assembles the dashboard overview: NAV, period change, allocation
// and account breakdowns, qualitative insights, and goal progress.
type Service struct {
	assets  AssetReader
	history HistoryRepository
	goals   GoalReader
	rates   RateProvider
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(assets AssetReader, history HistoryRepository, goals GoalReader, rates RateProvider, logger *zap.Logger) *Service {
	return &Service{
		assets:  assets,
		history: history,
		goals:   goals,
		rates:   rates,
		logger:  logger,
		now:     time.Now,
	}
}

// Overview is the dashboard payload.
type Overview struct {
	DisplayCurrency  string                   `json:"display_currency"`
	TotalNAV         float64                  `json:"total_nav"`
	Change           float64                  `json:"change"`
	ChangePercent    float64                  `json:"change_percent"`
	Period           entities.ChangePeriod    `json:"period"`
	Allocations      []Slice                  `json:"allocations"`
	Accounts         []Slice                  `json:"accounts"`
	LiabilitiesTotal float64                  `json:"liabilities_total"`
	HoldingsCount    int                      `json:"holdings_count"`
	Archetype        insights.Archetype       `json:"archetype"`
	Risk             insights.RiskLevel       `json:"risk"`
	Diversification  insights.Diversification `json:"diversification"`
	GoalProgress     *GoalProgress            `json:"goal_progress,omitempty"`
}

// GoalProgress reports how far the portfolio is toward the savings target.
type GoalProgress struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
	Currency     string          `json:"currency"`
	Percent      decimal.Decimal `json:"percent"`
}

// GetOverview computes the full dashboard view in displayCurrency. It also
// lazily records today's NAV snapshot so a portfolio viewed every day
// accumulates history without any other trigger.
func (s *Service) GetOverview(ctx context.Context, displayCurrency string, period entities.ChangePeriod, alphabetical bool) (*Overview, error) {
	snapshot := s.rates.GetRates(ctx)

	assets, err := s.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	agg := Aggregate(assets, displayCurrency, snapshot.Rates)

	if err := s.ensureDailySnapshot(ctx, assets, snapshot.Rates, displayCurrency); err != nil {
		// Snapshot failures degrade the change series, not the overview.
		s.logger.Warn("daily NAV snapshot failed", zap.Error(err))
	} else {
		metrics.NAVSnapshotsTotal.WithLabelValues("lazy").Inc()
	}

	history, err := s.history.List(ctx)
	if err != nil {
		s.logger.Warn("NAV history read failed", zap.Error(err))
		history = nil
	}

	change, changePct, ok := Change(history, period, agg.TotalNAV, displayCurrency, snapshot.Rates, s.now())
	if !ok {
		change, changePct = 0, 0
	}

	overview := &Overview{
		DisplayCurrency:  displayCurrency,
		TotalNAV:         agg.TotalNAV,
		Change:           change,
		ChangePercent:    changePct,
		Period:           period,
		Allocations:      agg.AllocationSlices(alphabetical),
		Accounts:         agg.AccountSlices(alphabetical),
		LiabilitiesTotal: agg.LiabilitiesTotal,
		HoldingsCount:    agg.HoldingsCount,
		Archetype:        insights.Classify(agg.Pct),
		Risk:             insights.Risk(agg.Pct),
		Diversification:  insights.Diversify(agg.Pct),
	}

	goal, err := s.goals.Get(ctx)
	if err != nil {
		s.logger.Warn("goal read failed", zap.Error(err))
	} else if goal != nil {
		navInGoalCurrency := fxrates.Convert(agg.TotalNAV, displayCurrency, goal.Currency, snapshot.Rates)
		overview.GoalProgress = &GoalProgress{
			TargetAmount: goal.TargetAmount,
			Currency:     goal.Currency,
			Percent:      goal.Progress(decimal.NewFromFloat(navInGoalCurrency)),
		}
	}

	return overview, nil
}

// GetHistory returns the stored NAV history entries.
func (s *Service) GetHistory(ctx context.Context) ([]entities.NAVHistoryEntry, error) {
	return s.history.List(ctx)
}

// RecordDailySnapshot computes today's NAV in USD and appends it if today
// has no entry yet. Used by the cron worker and the lazy path above.
func (s *Service) RecordDailySnapshot(ctx context.Context, displayCurrency string) error {
	snapshot := s.rates.GetRates(ctx)
	assets, err := s.assets.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}
	return s.ensureDailySnapshot(ctx, assets, snapshot.Rates, displayCurrency)
}

func (s *Service) ensureDailySnapshot(ctx context.Context, assets []*entities.Asset, rates map[string]float64, displayCurrency string) error {
	var navUSD float64
	for _, a := range assets {
		navUSD += fxrates.Convert(a.TotalValue, a.TotalValueCurrency, fxrates.USD, rates)
	}

	return s.history.Append(ctx, entities.NAVHistoryEntry{
		Date:            s.now().Format(entities.NAVDateLayout),
		TotalNAV:        navUSD,
		DisplayCurrency: displayCurrency,
	})
}
