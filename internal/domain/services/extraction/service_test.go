package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/ai"
)

type fakeCompleter struct {
	content string
	err     error
	lastReq *ai.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Response{Content: f.content, Provider: "fake"}, nil
}

func newTestService(completer *fakeCompleter) *Service {
	return NewService(completer, zap.NewNop())
}

const draftArrayJSON = `[
  {
    "name": "Bitcoin",
    "asset_type": "crypto",
    "ticker": "BTC",
    "quantity": 0.5,
    "unit_price": 40000,
    "unit_price_currency": "USD",
    "total_value": 20000,
    "total_value_currency": "USD",
    "value_source": "manual",
    "ai_confidence": "high",
    "ai_rationale": "user stated the amount"
  }
]`

func TestParseTextDecodesDraftArray(t *testing.T) {
	completer := &fakeCompleter{content: draftArrayJSON}
	svc := newTestService(completer)

	drafts, err := svc.ParseText(context.Background(), "I have half a bitcoin", "USD")
	require.NoError(t, err)

	require.Len(t, drafts, 1)
	assert.Equal(t, "Bitcoin", drafts[0].Name)
	assert.Equal(t, entities.AssetTypeCrypto, drafts[0].AssetType)
	assert.InDelta(t, 20000, drafts[0].TotalValue, 1e-9)
	require.NotNil(t, completer.lastReq)
	assert.True(t, completer.lastReq.JSONOnly)
	assert.Contains(t, completer.lastReq.Prompt, "USD")
}

func TestParseTextStripsMarkdownFences(t *testing.T) {
	completer := &fakeCompleter{content: "```json\n" + draftArrayJSON + "\n```"}
	svc := newTestService(completer)

	drafts, err := svc.ParseText(context.Background(), "half a bitcoin", "USD")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Bitcoin", drafts[0].Name)
}

func TestParseTextToleratesSingleObjectResponse(t *testing.T) {
	completer := &fakeCompleter{content: `{"name": "House", "asset_type": "property", "total_value": 500000, "total_value_currency": "USD"}`}
	svc := newTestService(completer)

	drafts, err := svc.ParseText(context.Background(), "my house", "USD")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entities.AssetTypeProperty, drafts[0].AssetType)
}

func TestParseTextNormalizesUnknownTypes(t *testing.T) {
	completer := &fakeCompleter{content: `[{"name": "Rolex", "asset_type": "watch", "total_value": 9000, "total_value_currency": "USD"}]`}
	svc := newTestService(completer)

	drafts, err := svc.ParseText(context.Background(), "a rolex", "USD")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entities.AssetTypeOther, drafts[0].AssetType)
}

func TestParseTextRejectsProse(t *testing.T) {
	completer := &fakeCompleter{content: "I could not find any assets in your message."}
	svc := newTestService(completer)

	_, err := svc.ParseText(context.Background(), "hello", "USD")
	require.Error(t, err)
}

func TestParseTextPropagatesQuotaExhaustion(t *testing.T) {
	quotaErr := &ai.ErrAllQuotaExhausted{}
	completer := &fakeCompleter{err: quotaErr}
	svc := newTestService(completer)

	_, err := svc.ParseText(context.Background(), "half a bitcoin", "USD")
	var target *ai.ErrAllQuotaExhausted
	require.ErrorAs(t, err, &target)
}

func TestParseScreenshotAttachesImage(t *testing.T) {
	completer := &fakeCompleter{content: draftArrayJSON}
	svc := newTestService(completer)

	_, err := svc.ParseScreenshot(context.Background(), "aGVsbG8=", "image/png", "ZAR")
	require.NoError(t, err)

	require.NotNil(t, completer.lastReq)
	require.Len(t, completer.lastReq.Images, 1)
	assert.Equal(t, "image/png", completer.lastReq.Images[0].MIMEType)
	assert.Equal(t, "aGVsbG8=", completer.lastReq.Images[0].Data)
}

func TestEstimateValueFillsMissingFields(t *testing.T) {
	completer := &fakeCompleter{content: `{"unit_price": 11000, "unit_price_currency": "USD", "ai_confidence": "medium", "ai_rationale": "average resale value"}`}
	svc := newTestService(completer)

	car := &entities.Asset{Name: "Corolla", AssetType: entities.AssetTypeVehicle, Quantity: 1, TotalValue: 12000, TotalValueCurrency: "USD"}
	estimate, err := svc.EstimateValue(context.Background(), car, "USD")
	require.NoError(t, err)

	assert.InDelta(t, 11000, estimate.TotalValue, 1e-9, "total derived from unit price and quantity")
	assert.Equal(t, entities.AIConfidenceMedium, estimate.Confidence)
}

func TestEstimateValueRejectsEmptyEstimate(t *testing.T) {
	completer := &fakeCompleter{content: `{"ai_confidence": "low", "ai_rationale": "no idea"}`}
	svc := newTestService(completer)

	car := &entities.Asset{Name: "Corolla", AssetType: entities.AssetTypeVehicle, Quantity: 1}
	_, err := svc.EstimateValue(context.Background(), car, "USD")
	require.Error(t, err)
}

func TestEstimateValueDefaultsConfidenceToLow(t *testing.T) {
	completer := &fakeCompleter{content: `{"total_value": 500, "ai_confidence": "certain"}`}
	svc := newTestService(completer)

	art := &entities.Asset{Name: "Print", AssetType: entities.AssetTypeOther, Quantity: 1}
	estimate, err := svc.EstimateValue(context.Background(), art, "EUR")
	require.NoError(t, err)
	assert.Equal(t, entities.AIConfidenceLow, estimate.Confidence)
	assert.Equal(t, "EUR", estimate.UnitPriceCurrency, "currency falls back to preferred")
}

func TestCleanJSONVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `[1]`, `[1]`},
		{"json fence", "```json\n[1]\n```", `[1]`},
		{"plain fence", "```\n[1]\n```", `[1]`},
		{"surrounding whitespace", "  [1]\n", `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
