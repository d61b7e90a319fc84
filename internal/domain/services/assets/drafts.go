package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
)

// ConfirmResult reports what happened to each confirmed draft.
type ConfirmResult struct {
	Created []*entities.Asset `json:"created"`
	Merged  []*entities.Asset `json:"merged"`
}

// ConfirmDrafts turns AI-extracted drafts into stored assets. A draft whose
// name (case-insensitive) and type match an existing asset is merged into
// it instead of creating a duplicate: quantities and values add up, sources
// union, rationales concatenate. Everything else becomes a new asset.
func (s *Service) ConfirmDrafts(ctx context.Context, drafts []entities.ParsedAsset, method entities.InputMethod) (*ConfirmResult, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	byKey := make(map[string]*entities.Asset, len(existing))
	for _, a := range existing {
		byKey[mergeKey(a.Name, a.AssetType)] = a
	}

	result := &ConfirmResult{}
	var toUpdate []*entities.Asset
	now := s.now()

	for i := range drafts {
		draft := normalizeDraft(drafts[i])

		if match, ok := byKey[mergeKey(draft.Name, draft.AssetType)]; ok {
			mergeDraft(match, draft, now)
			toUpdate = append(toUpdate, match)
			result.Merged = append(result.Merged, match)
			continue
		}

		a := draftToAsset(draft, method, now)
		if err := s.repo.Create(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to store confirmed draft %q: %w", draft.Name, err)
		}
		byKey[mergeKey(a.Name, a.AssetType)] = a
		result.Created = append(result.Created, a)
	}

	if len(toUpdate) > 0 {
		if err := s.repo.UpdateBatch(ctx, toUpdate); err != nil {
			return nil, fmt.Errorf("failed to store merged assets: %w", err)
		}
	}

	s.logger.Info("drafts confirmed",
		zap.Int("created", len(result.Created)),
		zap.Int("merged", len(result.Merged)))
	return result, nil
}

func mergeKey(name string, assetType entities.AssetType) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + string(assetType)
}

// normalizeDraft fills the valuation triangle and clamps the type the same
// way manual entry does, so downstream code never sees a half-filled draft.
func normalizeDraft(d entities.ParsedAsset) entities.ParsedAsset {
	d.AssetType = d.AssetType.Normalize()
	d.Quantity, d.UnitPrice, d.TotalValue = normalizeValuation(d.Quantity, d.UnitPrice, d.TotalValue)
	if d.UnitPriceCurrency == "" {
		d.UnitPriceCurrency = d.TotalValueCurrency
	}
	if d.TotalValueCurrency == "" {
		d.TotalValueCurrency = d.UnitPriceCurrency
	}
	if d.ValueSource == "" {
		d.ValueSource = entities.ValueSourceAIEstimate
	}
	return d
}

func mergeDraft(target *entities.Asset, draft entities.ParsedAsset, now time.Time) {
	target.Quantity += draft.Quantity
	target.TotalValue += draft.TotalValue
	if target.Quantity != 0 {
		target.UnitPrice = target.TotalValue / target.Quantity
	}
	target.Source = unionSources(target.Source, draft.Source)
	target.AIRationale = concatRationale(target.AIRationale, draft.AIRationale)
	target.UpdatedAt = now
}

// unionSources joins the two comma-separated source lists, dropping
// duplicates case-insensitively and keeping first-seen order.
func unionSources(existing, incoming *string) *string {
	var parts []string
	seen := make(map[string]bool)
	for _, src := range []*string{existing, incoming} {
		if src == nil {
			continue
		}
		for _, p := range strings.Split(*src, ",") {
			p = strings.TrimSpace(p)
			if p == "" || seen[strings.ToLower(p)] {
				continue
			}
			seen[strings.ToLower(p)] = true
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, ", ")
	return &joined
}

func concatRationale(existing *string, incoming string) *string {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return existing
	}
	if existing == nil || strings.TrimSpace(*existing) == "" {
		return &incoming
	}
	joined := *existing + " | " + incoming
	return &joined
}

func draftToAsset(d entities.ParsedAsset, method entities.InputMethod, now time.Time) *entities.Asset {
	a := &entities.Asset{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(d.Name),
		Description:        d.Description,
		AssetType:          d.AssetType,
		Ticker:             d.Ticker,
		Quantity:           d.Quantity,
		UnitPrice:          d.UnitPrice,
		UnitPriceCurrency:  d.UnitPriceCurrency,
		TotalValue:         d.TotalValue,
		TotalValueCurrency: d.TotalValueCurrency,
		ValueSource:        d.ValueSource,
		Source:             d.Source,
		InputMethod:        method,
		LastRefreshed:      now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if d.AIConfidence != "" {
		confidence := d.AIConfidence
		a.AIConfidence = &confidence
	}
	if rationale := strings.TrimSpace(d.AIRationale); rationale != "" {
		a.AIRationale = &rationale
	}
	return a
}
