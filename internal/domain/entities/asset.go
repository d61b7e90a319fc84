package entities

import (
	"time"

	"github.com/google/uuid"
)

type AssetType string

const (
	AssetTypeStock    AssetType = "stock"
	AssetTypeCrypto   AssetType = "crypto"
	AssetTypeVehicle  AssetType = "vehicle"
	AssetTypeProperty AssetType = "property"
	AssetTypeCash     AssetType = "cash"
	AssetTypeOther    AssetType = "other"
)

// Normalize maps unrecognized type strings into the "other" bucket so an
// unexpected value coming from the extraction boundary never breaks grouping.
func (t AssetType) Normalize() AssetType {
	switch t {
	case AssetTypeStock, AssetTypeCrypto, AssetTypeVehicle, AssetTypeProperty, AssetTypeCash, AssetTypeOther:
		return t
	default:
		return AssetTypeOther
	}
}

type ValueSource string

const (
	ValueSourceManual     ValueSource = "manual"
	ValueSourceAIEstimate ValueSource = "ai_estimate"
	ValueSourceLivePrice  ValueSource = "live_price"
)

type AIConfidence string

const (
	AIConfidenceHigh   AIConfidence = "high"
	AIConfidenceMedium AIConfidence = "medium"
	AIConfidenceLow    AIConfidence = "low"
)

type InputMethod string

const (
	InputMethodText       InputMethod = "text"
	InputMethodScreenshot InputMethod = "screenshot"
	InputMethodManual     InputMethod = "manual"
)

// Asset is a single holding or liability. TotalValue together with
// TotalValueCurrency is the authoritative monetary amount for aggregation;
// Quantity and UnitPrice are an edit/display convenience and are not
// independently trusted. A negative TotalValue represents debt.
type Asset struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	Name               string        `json:"name" db:"name"`
	Description        string        `json:"description" db:"description"`
	AssetType          AssetType     `json:"asset_type" db:"asset_type"`
	Ticker             *string       `json:"ticker,omitempty" db:"ticker"`
	Quantity           float64       `json:"quantity" db:"quantity"`
	UnitPrice          float64       `json:"unit_price" db:"unit_price"`
	UnitPriceCurrency  string        `json:"unit_price_currency" db:"unit_price_currency"`
	TotalValue         float64       `json:"total_value" db:"total_value"`
	TotalValueCurrency string        `json:"total_value_currency" db:"total_value_currency"`
	ValueSource        ValueSource   `json:"value_source" db:"value_source"`
	Source             *string       `json:"source,omitempty" db:"source"`
	AIConfidence       *AIConfidence `json:"ai_confidence,omitempty" db:"ai_confidence"`
	AIRationale        *string       `json:"ai_rationale,omitempty" db:"ai_rationale"`
	InputMethod        InputMethod   `json:"input_method" db:"input_method"`
	LastRefreshed      time.Time     `json:"last_refreshed" db:"last_refreshed"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// IsLiability reports whether the asset records debt rather than wealth.
func (a *Asset) IsLiability() bool {
	return a.TotalValue < 0
}

// ParsedAsset is a candidate asset produced by the extraction service.
// It becomes an Asset once the user confirms the draft.
type ParsedAsset struct {
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	AssetType          AssetType    `json:"asset_type"`
	Ticker             *string      `json:"ticker,omitempty"`
	Quantity           float64      `json:"quantity"`
	UnitPrice          float64      `json:"unit_price"`
	UnitPriceCurrency  string       `json:"unit_price_currency"`
	TotalValue         float64      `json:"total_value"`
	TotalValueCurrency string       `json:"total_value_currency"`
	ValueSource        ValueSource  `json:"value_source"`
	Source             *string      `json:"source,omitempty"`
	AIConfidence       AIConfidence `json:"ai_confidence"`
	AIRationale        string       `json:"ai_rationale"`
}
