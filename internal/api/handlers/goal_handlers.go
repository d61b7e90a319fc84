package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lukeberetta/wealthvue/internal/domain/entities"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

// GoalStore is the repository surface the goal endpoints use.
// Implemented by repositories.GoalRepository.
type GoalStore interface {
	Get(ctx context.Context) (*entities.FinancialGoal, error)
	Set(ctx context.Context, goal *entities.FinancialGoal) error
	Clear(ctx context.Context) error
}

// GoalHandlers serves the savings goal endpoints
type GoalHandlers struct {
	goals  GoalStore
	logger *logger.Logger
}

// NewGoalHandlers creates goal handlers
func NewGoalHandlers(goals GoalStore, log *logger.Logger) *GoalHandlers {
	return &GoalHandlers{goals: goals, logger: log}
}

// Get handles GET /goal
func (h *GoalHandlers) Get(c *gin.Context) {
	goal, err := h.goals.Get(c.Request.Context())
	if err != nil {
		h.logger.Errorw("Failed to read goal", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to read goal")
		return
	}
	if goal == nil {
		respondNotFound(c, "No goal set")
		return
	}

	c.JSON(http.StatusOK, goal)
}

type setGoalRequest struct {
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required"`
	Currency     string          `json:"currency" binding:"required"`
}

// Set handles PUT /goal
func (h *GoalHandlers) Set(c *gin.Context) {
	var req setGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid goal payload", map[string]interface{}{"error": err.Error()})
		return
	}
	if req.TargetAmount.LessThanOrEqual(decimal.Zero) {
		respondBadRequest(c, "Goal target must be positive", nil)
		return
	}

	goal := &entities.FinancialGoal{
		TargetAmount: req.TargetAmount,
		Currency:     strings.ToUpper(req.Currency),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := h.goals.Set(c.Request.Context(), goal); err != nil {
		h.logger.Errorw("Failed to set goal", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to set goal")
		return
	}

	c.JSON(http.StatusOK, goal)
}

// Clear handles DELETE /goal
func (h *GoalHandlers) Clear(c *gin.Context) {
	if err := h.goals.Clear(c.Request.Context()); err != nil {
		h.logger.Errorw("Failed to clear goal", "error", err, "request_id", getRequestID(c))
		respondInternalError(c, "Failed to clear goal")
		return
	}

	c.Status(http.StatusNoContent)
}
