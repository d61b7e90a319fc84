package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/internal/domain/services/portfolio"
	"github.com/lukeberetta/wealthvue/pkg/logger"
	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// PortfolioHandlers serves the dashboard aggregation endpoints
type PortfolioHandlers struct {
	portfolio       *portfolio.Service
	logger          *logger.Logger
	defaultCurrency string
}

// NewPortfolioHandlers creates portfolio handlers
func NewPortfolioHandlers(portfolioService *portfolio.Service, defaultCurrency string, log *logger.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		portfolio:       portfolioService,
		logger:          log,
		defaultCurrency: defaultCurrency,
	}
}

// Overview handles GET /portfolio/overview
func (h *PortfolioHandlers) Overview(c *gin.Context) {
	currency := strings.ToUpper(c.Query("currency"))
	if currency == "" {
		currency = h.defaultCurrency
	}
	period := entities.ParseChangePeriod(c.Query("period"))
	alphabetical := c.Query("sort") == "alphabetical"

	overview, err := h.portfolio.GetOverview(c.Request.Context(), currency, period, alphabetical)
	if err != nil {
		h.logger.Errorw("Failed to build portfolio overview",
			"error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to build portfolio overview")
		return
	}

	metrics.PortfolioNAVGauge.WithLabelValues(currency).Set(overview.TotalNAV)

	c.JSON(http.StatusOK, overview)
}

// History handles GET /portfolio/history
func (h *PortfolioHandlers) History(c *gin.Context) {
	entries, err := h.portfolio.GetHistory(c.Request.Context())
	if err != nil {
		h.logger.Errorw("Failed to read NAV history",
			"error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to read NAV history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries, "count": len(entries)})
}
