package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/ai"
	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// Completer runs a completion against the configured provider rotation.
// Satisfied by *ai.ProviderManager.
type Completer interface {
	Complete(ctx context.Context, req *ai.Request) (*ai.Response, error)
}

// Service turns free-form text and screenshots into asset drafts, and
// re-estimates the value of illiquid holdings. Parsed drafts are candidates
// only; nothing is persisted until the user confirms them.
type Service struct {
	completer Completer
	logger    *zap.Logger
}

func NewService(completer Completer, logger *zap.Logger) *Service {
	return &Service{completer: completer, logger: logger}
}

const extractionSystemPrompt = `You are a personal finance assistant that extracts asset and liability
information from user input. Respond with a JSON array only, no prose.
Each element must have: name, description, asset_type (one of stock,
crypto, vehicle, property, cash, other), ticker (official symbol or null),
quantity, unit_price, unit_price_currency (ISO 4217), total_value,
total_value_currency, value_source ("stated" becomes "manual", estimates
are "ai_estimate"), source (institution or platform, or null),
ai_confidence (high, medium, low), ai_rationale (one sentence).
Debts and loans are assets with a negative total_value. When the user
states a value, echo it exactly. When you estimate, use current market
knowledge and say so in the rationale.`

// ParseText extracts asset drafts from a natural-language description.
func (s *Service) ParseText(ctx context.Context, text, preferredCurrency string) ([]entities.ParsedAsset, error) {
	prompt := fmt.Sprintf("Preferred display currency: %s.\n\nUser input:\n%s", preferredCurrency, text)

	return s.extract(ctx, "text", &ai.Request{
		SystemPrompt: extractionSystemPrompt,
		Prompt:       prompt,
		JSONOnly:     true,
	})
}

// ParseScreenshot extracts asset drafts from a brokerage or banking app
// screenshot. Data is base64-encoded image bytes.
func (s *Service) ParseScreenshot(ctx context.Context, data, mimeType, preferredCurrency string) ([]entities.ParsedAsset, error) {
	prompt := fmt.Sprintf("Preferred display currency: %s.\n\nExtract every holding and balance visible in this screenshot.", preferredCurrency)

	return s.extract(ctx, "screenshot", &ai.Request{
		SystemPrompt: extractionSystemPrompt,
		Prompt:       prompt,
		Images:       []ai.Image{{MIMEType: mimeType, Data: data}},
		JSONOnly:     true,
	})
}

func (s *Service) extract(ctx context.Context, kind string, req *ai.Request) ([]entities.ParsedAsset, error) {
	resp, err := s.completer.Complete(ctx, req)
	if err != nil {
		metrics.AIExtractionsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}

	drafts, err := parseDrafts(resp.Content)
	if err != nil {
		metrics.AIExtractionsTotal.WithLabelValues(kind, "error").Inc()
		s.logger.Warn("unparseable extraction response",
			zap.String("provider", resp.Provider),
			zap.Error(err))
		return nil, fmt.Errorf("could not understand the AI response: %w", err)
	}
	metrics.AIExtractionsTotal.WithLabelValues(kind, "success").Inc()

	for i := range drafts {
		drafts[i].AssetType = drafts[i].AssetType.Normalize()
	}

	s.logger.Info("extraction completed",
		zap.String("provider", resp.Provider),
		zap.Int("drafts", len(drafts)))
	return drafts, nil
}

const estimateSystemPrompt = `You are a valuation assistant. Estimate the current fair market value of
the described asset. Respond with a single JSON object only:
{"unit_price": number, "unit_price_currency": "ISO 4217",
"total_value": number, "ai_confidence": "high"|"medium"|"low",
"ai_rationale": "one sentence"}.`

// EstimateValue asks the rotation for a fresh market value of one asset.
// Implements the asset service's Estimator.
func (s *Service) EstimateValue(ctx context.Context, asset *entities.Asset, preferredCurrency string) (*assets.ValueEstimate, error) {
	prompt := fmt.Sprintf(
		"Asset: %s\nType: %s\nDescription: %s\nQuantity: %g\nLast known value: %g %s\nPreferred currency: %s",
		asset.Name, asset.AssetType, asset.Description,
		asset.Quantity, asset.TotalValue, asset.TotalValueCurrency,
		preferredCurrency,
	)

	resp, err := s.completer.Complete(ctx, &ai.Request{
		SystemPrompt: estimateSystemPrompt,
		Prompt:       prompt,
		JSONOnly:     true,
	})
	if err != nil {
		metrics.AIExtractionsTotal.WithLabelValues("estimate", "error").Inc()
		return nil, err
	}
	metrics.AIExtractionsTotal.WithLabelValues("estimate", "success").Inc()

	var raw struct {
		UnitPrice         float64 `json:"unit_price"`
		UnitPriceCurrency string  `json:"unit_price_currency"`
		TotalValue        float64 `json:"total_value"`
		AIConfidence      string  `json:"ai_confidence"`
		AIRationale       string  `json:"ai_rationale"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content)), &raw); err != nil {
		return nil, fmt.Errorf("could not understand the AI response: %w", err)
	}
	if raw.TotalValue == 0 && raw.UnitPrice == 0 {
		return nil, fmt.Errorf("estimate response carried no value")
	}
	if raw.TotalValue == 0 {
		raw.TotalValue = raw.UnitPrice * asset.Quantity
	}
	if raw.UnitPrice == 0 && asset.Quantity != 0 {
		raw.UnitPrice = raw.TotalValue / asset.Quantity
	}
	if raw.UnitPriceCurrency == "" {
		raw.UnitPriceCurrency = preferredCurrency
	}

	return &assets.ValueEstimate{
		UnitPrice:         raw.UnitPrice,
		UnitPriceCurrency: raw.UnitPriceCurrency,
		TotalValue:        raw.TotalValue,
		Confidence:        confidence(raw.AIConfidence),
		Rationale:         raw.AIRationale,
	}, nil
}

// parseDrafts decodes a JSON array of drafts, tolerating a single-object
// response and markdown code fences.
func parseDrafts(content string) ([]entities.ParsedAsset, error) {
	cleaned := cleanJSON(content)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}

	var drafts []entities.ParsedAsset
	if err := json.Unmarshal([]byte(cleaned), &drafts); err == nil {
		return drafts, nil
	}

	var single entities.ParsedAsset
	if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
		return nil, fmt.Errorf("response is neither a draft array nor a draft object")
	}
	return []entities.ParsedAsset{single}, nil
}

// cleanJSON strips the markdown code fences some models wrap around JSON
// despite instructions.
func cleanJSON(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

func confidence(s string) entities.AIConfidence {
	switch entities.AIConfidence(strings.ToLower(s)) {
	case entities.AIConfidenceHigh:
		return entities.AIConfidenceHigh
	case entities.AIConfidenceMedium:
		return entities.AIConfidenceMedium
	default:
		return entities.AIConfidenceLow
	}
}
