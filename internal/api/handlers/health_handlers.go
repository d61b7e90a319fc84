package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/lukeberetta/wealthvue/internal/infrastructure/cache"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

// HealthHandlers serves liveness and readiness probes
type HealthHandlers struct {
	db     *sqlx.DB
	cache  *cache.Cache
	logger *logger.Logger
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers(db *sqlx.DB, redisCache *cache.Cache, log *logger.Logger) *HealthHandlers {
	return &HealthHandlers{db: db, cache: redisCache, logger: log}
}

var startTime = time.Now()

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Live handles GET /health and GET /health/live
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Version handles GET /version
func (h *HealthHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": Version,
		"go":      runtime.Version(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warnw("Database health check failed", "error", err)
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "up"
	}

	if err := h.cache.Ping(ctx); err != nil {
		h.logger.Warnw("Redis health check failed", "error", err)
		checks["redis"] = "down"
		healthy = false
	} else {
		checks["redis"] = "up"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"checks": checks})
}
