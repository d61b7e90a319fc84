package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/internal/domain/services/extraction"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/ai"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

// ExtractionHandlers serves the AI extraction and draft confirmation
// endpoints
type ExtractionHandlers struct {
	extraction      *extraction.Service
	assets          *assets.Service
	logger          *logger.Logger
	defaultCurrency string
}

// NewExtractionHandlers creates extraction handlers
func NewExtractionHandlers(extractionService *extraction.Service, assetService *assets.Service, defaultCurrency string, log *logger.Logger) *ExtractionHandlers {
	return &ExtractionHandlers{
		extraction:      extractionService,
		assets:          assetService,
		logger:          log,
		defaultCurrency: defaultCurrency,
	}
}

// respondIfQuotaExhausted maps provider quota exhaustion to 429 with a
// Retry-After hint. Returns true when it handled the error.
func respondIfQuotaExhausted(c *gin.Context, err error) bool {
	var quotaErr *ai.ErrAllQuotaExhausted
	if !errors.As(err, &quotaErr) {
		return false
	}

	details := map[string]interface{}{}
	if quotaErr.RetryAfter > 0 {
		seconds := int(quotaErr.RetryAfter.Seconds())
		c.Header("Retry-After", strconv.Itoa(seconds))
		details["retry_after_seconds"] = seconds
	}
	respondError(c, http.StatusTooManyRequests, "AI_QUOTA_EXHAUSTED",
		"All AI providers are over quota, try again shortly", details)
	return true
}

type extractTextRequest struct {
	Text     string `json:"text" binding:"required"`
	Currency string `json:"currency"`
}

// ExtractText handles POST /extract/text
func (h *ExtractionHandlers) ExtractText(c *gin.Context) {
	var req extractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid extraction payload", map[string]interface{}{"error": err.Error()})
		return
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = h.defaultCurrency
	}

	drafts, err := h.extraction.ParseText(c.Request.Context(), req.Text, currency)
	if err != nil {
		if respondIfQuotaExhausted(c, err) {
			return
		}
		h.logger.Errorw("Text extraction failed", "error", err, "request_id", getRequestID(c))
		respondError(c, http.StatusBadGateway, "EXTRACTION_FAILED",
			"Could not extract assets from the input", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

type extractScreenshotRequest struct {
	Image    string `json:"image" binding:"required"` // base64-encoded
	MIMEType string `json:"mime_type"`
	Currency string `json:"currency"`
}

// ExtractScreenshot handles POST /extract/screenshot
func (h *ExtractionHandlers) ExtractScreenshot(c *gin.Context) {
	var req extractScreenshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid screenshot payload", map[string]interface{}{"error": err.Error()})
		return
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = h.defaultCurrency
	}

	drafts, err := h.extraction.ParseScreenshot(c.Request.Context(), req.Image, mimeType, currency)
	if err != nil {
		if respondIfQuotaExhausted(c, err) {
			return
		}
		h.logger.Errorw("Screenshot extraction failed", "error", err, "request_id", getRequestID(c))
		respondError(c, http.StatusBadGateway, "EXTRACTION_FAILED",
			"Could not extract assets from the screenshot", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

type confirmDraftsRequest struct {
	Drafts      []entities.ParsedAsset `json:"drafts" binding:"required"`
	InputMethod entities.InputMethod   `json:"input_method"`
}

// ConfirmDrafts handles POST /drafts/confirm
func (h *ExtractionHandlers) ConfirmDrafts(c *gin.Context) {
	var req confirmDraftsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid drafts payload", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(req.Drafts) == 0 {
		respondBadRequest(c, "No drafts to confirm", nil)
		return
	}

	method := req.InputMethod
	switch method {
	case entities.InputMethodText, entities.InputMethodScreenshot, entities.InputMethodManual:
	default:
		method = entities.InputMethodText
	}

	result, err := h.assets.ConfirmDrafts(c.Request.Context(), req.Drafts, method)
	if err != nil {
		h.logger.Errorw("Draft confirmation failed", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to confirm drafts")
		return
	}

	c.JSON(http.StatusCreated, result)
}
