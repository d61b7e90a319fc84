package assets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/fxrates"
)

// Repository persists the portfolio's assets.
type Repository interface {
	List(ctx context.Context) ([]*entities.Asset, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Asset, error)
	Create(ctx context.Context, asset *entities.Asset) error
	Update(ctx context.Context, asset *entities.Asset) error
	UpdateBatch(ctx context.Context, assets []*entities.Asset) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
}

// RateProvider supplies FX rates for value-based sorting.
type RateProvider interface {
	GetRates(ctx context.Context) *entities.FXSnapshot
}

// ValueEstimate is an AI re-estimation of a single asset's worth.
type ValueEstimate struct {
	UnitPrice         float64
	UnitPriceCurrency string
	TotalValue        float64
	Confidence        entities.AIConfidence
	Rationale         string
}

// Estimator produces fresh value estimates for assets without tickers
// (vehicles, property, collectibles).
type Estimator interface {
	EstimateValue(ctx context.Context, asset *entities.Asset, preferredCurrency string) (*ValueEstimate, error)
}

// Service owns asset lifecycle: manual entry, draft confirmation, edits,
// deletion, live price refresh, and AI re-estimation.
type Service struct {
	repo      Repository
	rates     RateProvider
	quotes    QuoteProvider
	estimator Estimator
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(repo Repository, rates RateProvider, quotes QuoteProvider, estimator Estimator, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		rates:     rates,
		quotes:    quotes,
		estimator: estimator,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns assets ordered for presentation. Value ordering converts
// each asset into displayCurrency first so mixed-currency portfolios sort
// correctly.
func (s *Service) List(ctx context.Context, order entities.SortOrder, displayCurrency string) ([]*entities.Asset, error) {
	assets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	switch order {
	case entities.SortNameAsc:
		sort.Slice(assets, func(i, j int) bool {
			return strings.ToLower(assets[i].Name) < strings.ToLower(assets[j].Name)
		})
	case entities.SortValueAsc, entities.SortValueDesc:
		rates := s.rates.GetRates(ctx).Rates
		value := func(a *entities.Asset) float64 {
			return fxrates.Convert(a.TotalValue, a.TotalValueCurrency, displayCurrency, rates)
		}
		sort.Slice(assets, func(i, j int) bool {
			if order == entities.SortValueAsc {
				return value(assets[i]) < value(assets[j])
			}
			return value(assets[i]) > value(assets[j])
		})
	}
	return assets, nil
}

// CreateInput is a manually entered asset.
type CreateInput struct {
	Name               string             `json:"name" binding:"required"`
	Description        string             `json:"description"`
	AssetType          entities.AssetType `json:"asset_type" binding:"required"`
	Ticker             *string            `json:"ticker"`
	Quantity           float64            `json:"quantity"`
	UnitPrice          float64            `json:"unit_price"`
	UnitPriceCurrency  string             `json:"unit_price_currency"`
	TotalValue         float64            `json:"total_value"`
	TotalValueCurrency string             `json:"total_value_currency" binding:"required"`
	Source             *string            `json:"source"`
}

// Create stores a manually entered asset, filling derivable valuation
// fields the same way draft normalization does.
func (s *Service) Create(ctx context.Context, input CreateInput) (*entities.Asset, error) {
	now := s.now()
	quantity, unitPrice, totalValue := normalizeValuation(input.Quantity, input.UnitPrice, input.TotalValue)

	unitCurrency := input.UnitPriceCurrency
	if unitCurrency == "" {
		unitCurrency = input.TotalValueCurrency
	}

	a := &entities.Asset{
		ID:                 uuid.New(),
		Name:               input.Name,
		Description:        input.Description,
		AssetType:          input.AssetType.Normalize(),
		Ticker:             input.Ticker,
		Quantity:           quantity,
		UnitPrice:          unitPrice,
		UnitPriceCurrency:  unitCurrency,
		TotalValue:         totalValue,
		TotalValueCurrency: input.TotalValueCurrency,
		ValueSource:        entities.ValueSourceManual,
		Source:             input.Source,
		InputMethod:        entities.InputMethodManual,
		LastRefreshed:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return a, nil
}

// Update replaces an existing asset's editable fields.
func (s *Service) Update(ctx context.Context, asset *entities.Asset) error {
	asset.AssetType = asset.AssetType.Normalize()
	asset.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, asset); err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return nil
}

// Delete removes one asset.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// BulkDelete removes the selected assets in one statement.
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.repo.DeleteBatch(ctx, ids); err != nil {
		return fmt.Errorf("failed to bulk delete assets: %w", err)
	}
	return nil
}

// Reestimate asks the AI estimator for an updated value of a single asset
// and persists the result as an ai_estimate.
func (s *Service) Reestimate(ctx context.Context, id uuid.UUID, preferredCurrency string) (*entities.Asset, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}

	estimate, err := s.estimator.EstimateValue(ctx, a, preferredCurrency)
	if err != nil {
		return nil, fmt.Errorf("re-estimation failed: %w", err)
	}

	now := s.now()
	a.UnitPrice = estimate.UnitPrice
	a.UnitPriceCurrency = estimate.UnitPriceCurrency
	a.TotalValue = estimate.TotalValue
	a.TotalValueCurrency = estimate.UnitPriceCurrency
	a.ValueSource = entities.ValueSourceAIEstimate
	a.AIConfidence = &estimate.Confidence
	a.AIRationale = &estimate.Rationale
	a.LastRefreshed = now
	a.UpdatedAt = now

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store re-estimated asset: %w", err)
	}
	return a, nil
}

// normalizeValuation fills the missing side of the quantity/unitPrice/
// totalValue triangle. Zero quantity defaults to 1 so a bare "worth X"
// entry stays representable.
func normalizeValuation(quantity, unitPrice, totalValue float64) (float64, float64, float64) {
	if quantity == 0 {
		quantity = 1
	}
	if unitPrice == 0 && quantity != 0 {
		unitPrice = totalValue / quantity
	}
	if totalValue == 0 {
		totalValue = unitPrice * quantity
	}
	return quantity, unitPrice, totalValue
}
