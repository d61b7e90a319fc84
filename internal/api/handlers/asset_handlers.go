package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

// AssetHandlers serves the asset CRUD and maintenance endpoints
type AssetHandlers struct {
	assets          *assets.Service
	logger          *logger.Logger
	defaultCurrency string
}

// NewAssetHandlers creates asset handlers
func NewAssetHandlers(assetService *assets.Service, defaultCurrency string, log *logger.Logger) *AssetHandlers {
	return &AssetHandlers{
		assets:          assetService,
		logger:          log,
		defaultCurrency: defaultCurrency,
	}
}

// displayCurrency resolves the ?currency= query, defaulting to the
// configured display currency.
func (h *AssetHandlers) displayCurrency(c *gin.Context) string {
	if currency := strings.ToUpper(c.Query("currency")); currency != "" {
		return currency
	}
	return h.defaultCurrency
}

// List handles GET /assets
func (h *AssetHandlers) List(c *gin.Context) {
	order := entities.SortOrder(c.DefaultQuery("sort", string(entities.SortValueDesc)))

	result, err := h.assets.List(c.Request.Context(), order, h.displayCurrency(c))
	if err != nil {
		h.logger.Errorw("Failed to list assets", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to list assets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": result, "count": len(result)})
}

// Create handles POST /assets
func (h *AssetHandlers) Create(c *gin.Context) {
	var input assets.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "Invalid asset payload", map[string]interface{}{"error": err.Error()})
		return
	}

	asset, err := h.assets.Create(c.Request.Context(), input)
	if err != nil {
		h.logger.Errorw("Failed to create asset", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to create asset")
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// updateAssetRequest carries the editable asset fields
type updateAssetRequest struct {
	Name               string             `json:"name" binding:"required"`
	Description        string             `json:"description"`
	AssetType          entities.AssetType `json:"asset_type" binding:"required"`
	Ticker             *string            `json:"ticker"`
	Quantity           float64            `json:"quantity"`
	UnitPrice          float64            `json:"unit_price"`
	UnitPriceCurrency  string             `json:"unit_price_currency"`
	TotalValue         float64            `json:"total_value"`
	TotalValueCurrency string             `json:"total_value_currency" binding:"required"`
	ValueSource        entities.ValueSource `json:"value_source"`
	Source             *string            `json:"source"`
}

// Update handles PUT /assets/:id
func (h *AssetHandlers) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid asset id", nil)
		return
	}

	var req updateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid asset payload", map[string]interface{}{"error": err.Error()})
		return
	}

	valueSource := req.ValueSource
	if valueSource == "" {
		valueSource = entities.ValueSourceManual
	}

	asset := &entities.Asset{
		ID:                 id,
		Name:               req.Name,
		Description:        req.Description,
		AssetType:          req.AssetType,
		Ticker:             req.Ticker,
		Quantity:           req.Quantity,
		UnitPrice:          req.UnitPrice,
		UnitPriceCurrency:  req.UnitPriceCurrency,
		TotalValue:         req.TotalValue,
		TotalValueCurrency: req.TotalValueCurrency,
		ValueSource:        valueSource,
		Source:             req.Source,
	}

	if err := h.assets.Update(c.Request.Context(), asset); err != nil {
		if isNotFoundError(err) {
			respondNotFound(c, "Asset not found")
			return
		}
		h.logger.Errorw("Failed to update asset", "error", err, "asset_id", id.String())
		respondInternalError(c, "Failed to update asset")
		return
	}

	c.JSON(http.StatusOK, asset)
}

// Delete handles DELETE /assets/:id
func (h *AssetHandlers) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid asset id", nil)
		return
	}

	if err := h.assets.Delete(c.Request.Context(), id); err != nil {
		if isNotFoundError(err) {
			respondNotFound(c, "Asset not found")
			return
		}
		h.logger.Errorw("Failed to delete asset", "error", err, "asset_id", id.String())
		respondInternalError(c, "Failed to delete asset")
		return
	}

	c.Status(http.StatusNoContent)
}

// bulkDeleteRequest selects assets for deletion
type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// BulkDelete handles POST /assets/bulk-delete
func (h *AssetHandlers) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid bulk delete payload", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := h.assets.BulkDelete(c.Request.Context(), req.IDs); err != nil {
		h.logger.Errorw("Failed to bulk delete assets", "error", err, "count", len(req.IDs))
		respondInternalError(c, "Failed to delete assets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": len(req.IDs)})
}

// RefreshPrices handles POST /assets/refresh-prices
func (h *AssetHandlers) RefreshPrices(c *gin.Context) {
	result, err := h.assets.RefreshPrices(c.Request.Context())
	if err != nil {
		h.logger.Errorw("Price refresh failed", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to refresh prices")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reestimate handles POST /assets/:id/reestimate
func (h *AssetHandlers) Reestimate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid asset id", nil)
		return
	}

	asset, err := h.assets.Reestimate(c.Request.Context(), id, h.displayCurrency(c))
	if err != nil {
		if isNotFoundError(err) {
			respondNotFound(c, "Asset not found")
			return
		}
		if respondIfQuotaExhausted(c, err) {
			return
		}
		h.logger.Errorw("Re-estimation failed", "error", err, "asset_id", id.String())
		respondInternalError(c, "Failed to re-estimate asset value")
		return
	}

	c.JSON(http.StatusOK, asset)
}
