package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lukeberetta/wealthvue/internal/api/routes"
	"github.com/lukeberetta/wealthvue/internal/domain/services/assets"
	"github.com/lukeberetta/wealthvue/internal/domain/services/extraction"
	"github.com/lukeberetta/wealthvue/internal/domain/services/fxrates"
	"github.com/lukeberetta/wealthvue/internal/domain/services/portfolio"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/ai"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/cache"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/config"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/database"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/fxsource"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/marketdata"
	"github.com/lukeberetta/wealthvue/internal/infrastructure/repositories"
	"github.com/lukeberetta/wealthvue/internal/workers/navsnapshot"
	"github.com/lukeberetta/wealthvue/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	zapLog := log.Zap()

	// Database
	db, err := database.Connect(&cfg.Database, zapLog)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db, "migrations", zapLog); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Redis
	redisCache, err := cache.New(&cache.Config{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, zapLog)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisCache.Close()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// AI provider rotation: every Gemini key is its own provider, OpenAI
	// closes the rotation when configured.
	var providers []ai.Provider
	for _, key := range cfg.AI.GeminiAPIKeys {
		providers = append(providers, ai.NewGeminiProvider(&ai.ProviderConfig{
			APIKey:       key,
			Model:        cfg.AI.GeminiModel,
			MaxTokens:    cfg.AI.MaxTokens,
			Temperature:  cfg.AI.Temperature,
			Timeout:      time.Duration(cfg.AI.TimeoutSec) * time.Second,
			RateLimitRPM: cfg.AI.RateLimitRPM,
		}, zapLog))
	}
	if cfg.AI.OpenAIAPIKey != "" {
		providers = append(providers, ai.NewOpenAIProvider(&ai.ProviderConfig{
			APIKey:       cfg.AI.OpenAIAPIKey,
			Model:        cfg.AI.OpenAIModel,
			MaxTokens:    cfg.AI.MaxTokens,
			Temperature:  cfg.AI.Temperature,
			Timeout:      time.Duration(cfg.AI.TimeoutSec) * time.Second,
			RateLimitRPM: cfg.AI.RateLimitRPM,
		}, zapLog))
	}
	providerManager := ai.NewProviderManager(providers, &ai.ProviderManagerConfig{
		RetryAttempts: cfg.AI.RetryAttempts,
		RetryDelay:    time.Second,
	}, zapLog)

	// Repositories and external clients
	assetRepo := repositories.NewAssetRepository(db, zapLog)
	historyRepo := repositories.NewNAVHistoryRepository(db, zapLog)
	goalRepo := repositories.NewGoalRepository(db, zapLog)
	fxStore := cache.NewFXStore(redisCache, zapLog)
	fxClient := fxsource.NewClient(zapLog,
		fxsource.WithBaseURL(cfg.FX.BaseURL),
		fxsource.WithTimeout(time.Duration(cfg.FX.TimeoutSec)*time.Second))
	quoteClient := marketdata.NewClient(
		time.Duration(cfg.MarketData.TimeoutSec)*time.Second, zapLog,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL))

	// Domain services
	fxService := fxrates.NewService(fxStore, fxClient, zapLog)
	extractionService := extraction.NewService(providerManager, zapLog)
	assetService := assets.NewService(assetRepo, fxService, quoteClient, extractionService, zapLog)
	portfolioService := portfolio.NewService(assetRepo, historyRepo, goalRepo, fxService, zapLog)

	router := routes.SetupRoutes(&routes.Dependencies{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Cache:      redisCache,
		Assets:     assetService,
		Portfolio:  portfolioService,
		Extraction: extractionService,
		Goals:      goalRepo,
	})

	// Daily NAV snapshot worker
	scheduler := navsnapshot.NewScheduler(
		portfolioService,
		cfg.Portfolio.SnapshotSchedule,
		cfg.Portfolio.DefaultCurrency,
		zapLog,
	)
	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start NAV snapshot scheduler", "error", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
