package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukeberetta/wealthvue/internal/api/handlers"
	"github.com/lukeberetta/wealthvue/internal/api/middleware"
	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/internal/domain/services/extraction"
	"github.com/lukeberetta/wealthvue/internal/domain/services/portfolio"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/cache"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/config"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/repositories"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

// Dependencies carries everything the route tree needs.
type Dependencies struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *sqlx.DB
	Cache      *cache.Cache
	Assets     *assets.Service
	Portfolio  *portfolio.Service
	Extraction *extraction.Service
	Goals      *repositories.GoalRepository
}

// SetupRoutes configures all application routes
func SetupRoutes(deps *Dependencies) *gin.Engine {
	router := gin.New()

	// Global middleware, order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(deps.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.GzipCompression())

	defaultCurrency := deps.Config.Portfolio.DefaultCurrency

	healthHandlers := handlers.NewHealthHandlers(deps.DB, deps.Cache, deps.Logger)
	assetHandlers := handlers.NewAssetHandlers(deps.Assets, defaultCurrency, deps.Logger)
	portfolioHandlers := handlers.NewPortfolioHandlers(deps.Portfolio, defaultCurrency, deps.Logger)
	extractionHandlers := handlers.NewExtractionHandlers(deps.Extraction, deps.Assets, defaultCurrency, deps.Logger)
	goalHandlers := handlers.NewGoalHandlers(deps.Goals, deps.Logger)

	// Probes and metrics
	router.GET("/health", healthHandlers.Live)
	router.GET("/health/live", healthHandlers.Live)
	router.GET("/health/ready", healthHandlers.Ready)
	router.GET("/version", healthHandlers.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		portfolioGroup := v1.Group("/portfolio")
		{
			portfolioGroup.GET("/overview", portfolioHandlers.Overview)
			portfolioGroup.GET("/history", portfolioHandlers.History)
		}

		assetGroup := v1.Group("/assets")
		{
			assetGroup.GET("", assetHandlers.List)
			assetGroup.POST("", assetHandlers.Create)
			assetGroup.PUT("/:id", assetHandlers.Update)
			assetGroup.DELETE("/:id", assetHandlers.Delete)
			assetGroup.POST("/bulk-delete", assetHandlers.BulkDelete)
			assetGroup.POST("/refresh-prices", assetHandlers.RefreshPrices)
			assetGroup.POST("/:id/reestimate", assetHandlers.Reestimate)
		}

		extractGroup := v1.Group("/extract")
		{
			extractGroup.POST("/text", extractionHandlers.ExtractText)
			extractGroup.POST("/screenshot", extractionHandlers.ExtractScreenshot)
		}
		v1.POST("/drafts/confirm", extractionHandlers.ConfirmDrafts)

		goalGroup := v1.Group("/goal")
		{
			goalGroup.GET("", goalHandlers.Get)
			goalGroup.PUT("", goalHandlers.Set)
			goalGroup.DELETE("", goalHandlers.Clear)
		}
	}

	return router
}
