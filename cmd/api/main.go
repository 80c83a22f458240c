package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/gifforge/internal/api"
	"github.com/timmy/gifforge/internal/api/middleware"
	"github.com/timmy/gifforge/internal/cache"
	"github.com/timmy/gifforge/internal/config"
	"github.com/timmy/gifforge/internal/domain"
	"github.com/timmy/gifforge/internal/engine"
	"github.com/timmy/gifforge/internal/logger"
	"github.com/timmy/gifforge/internal/service"
	"github.com/timmy/gifforge/internal/source"
	"github.com/timmy/gifforge/internal/source/giphy"
	"github.com/timmy/gifforge/internal/source/mock"
	"github.com/timmy/gifforge/internal/source/tenor"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := logger.DefaultConfig()
	if cfg.Server.Mode != "release" {
		logCfg.Level = "debug"
		logCfg.Format = "text"
	}
	appLog := logger.New(logCfg)
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Initialize caches
	searchCache, err := cache.New[*service.SearchResponse](
		"search", cfg.Cache.MaxEntries, cfg.Cache.SearchTTL, cfg.Cache.SweepInterval, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create search cache: %v", err)
	}
	gifCache, err := cache.New[*domain.GifDescriptor](
		"gifs", cfg.Cache.MaxEntries, cfg.Cache.SearchTTL, cfg.Cache.SweepInterval, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create gif cache: %v", err)
	}
	resultCache, err := cache.New[*domain.ProcessedGif](
		"results", cfg.Cache.MaxEntries, cfg.Cache.ResultTTL, cfg.Cache.SweepInterval, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create result cache: %v", err)
	}
	artifactCache, err := cache.New[[]byte](
		"artifacts", cfg.Cache.MaxEntries, cfg.Cache.ArtifactTTL, cfg.Cache.SweepInterval, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create artifact cache: %v", err)
	}
	shareCache, err := cache.New[*domain.SharedGif](
		"shares", cfg.Cache.MaxEntries, cfg.Share.TTL, cfg.Cache.SweepInterval, appLog)
	if err != nil {
		appLog.Fatalf("Failed to create share cache: %v", err)
	}

	// Initialize GIF providers in fallback order
	var providers []source.Provider
	if cfg.Providers.Giphy.Enabled && cfg.Providers.Giphy.APIKey != "" {
		providers = append(providers, giphy.New(giphy.Config{
			APIKey:  cfg.Providers.Giphy.APIKey,
			BaseURL: cfg.Providers.Giphy.BaseURL,
		}))
	}
	if cfg.Providers.Tenor.Enabled && cfg.Providers.Tenor.APIKey != "" {
		providers = append(providers, tenor.New(tenor.Config{
			APIKey:  cfg.Providers.Tenor.APIKey,
			BaseURL: cfg.Providers.Tenor.BaseURL,
		}))
	}
	if cfg.Providers.Mock.Enabled || len(providers) == 0 {
		providers = append(providers, mock.New())
	}

	// Initialize the encoder engine
	eng := engine.New(engine.Config{
		BinaryPath:     cfg.Engine.BinaryPath,
		WorkDir:        cfg.Engine.WorkDir,
		FontBaseURL:    cfg.Engine.FontBaseURL,
		InitTimeout:    cfg.Engine.InitTimeout,
		ProcessTimeout: cfg.Engine.ProcessTimeout,
		MaxInputBytes:  cfg.Engine.MaxInputBytes,
		MaxMemoryBytes: cfg.Engine.MaxMemoryBytes,
	}, appLog)

	ctx := context.Background()
	if err := eng.Initialize(ctx); err != nil {
		appLog.Fatalf("Failed to initialize encoder engine: %v", err)
	}

	// Initialize services
	searchService := service.NewSearchService(providers, searchCache, gifCache, appLog)
	processingService := service.NewProcessingService(eng, resultCache, artifactCache, appLog, service.ProcessingConfig{
		MaxAttempts:     cfg.Processing.MaxAttempts,
		InitialBackoff:  cfg.Processing.InitialBackoff,
		BreakerFailures: cfg.Processing.BreakerFailures,
		BreakerCooldown: cfg.Processing.BreakerCooldown,
	})
	shareService := service.NewShareService(shareCache, service.ShareConfig{
		TTL:     cfg.Share.TTL,
		BaseURL: cfg.Share.BaseURL,
	}, appLog)

	// Setup router
	router := api.SetupRouter(searchService, processingService, shareService, appLog, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.Infof("Starting API server on port %d (%s mode)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorf("Server forced to shutdown: %v", err)
	}

	// Tear down the pipeline and caches
	processingService.Dispose()
	searchCache.Dispose()
	gifCache.Dispose()
	resultCache.Dispose()
	artifactCache.Dispose()
	shareCache.Dispose()

	appLog.Info("Server exited")
}
