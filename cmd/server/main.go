// Package main provides the API server entry point for the points ledger
// service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/points-ledger/internal/api"
	"github.com/points-ledger/internal/config"
	"github.com/points-ledger/internal/logging"
	"github.com/points-ledger/internal/service"
	"github.com/points-ledger/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// The store handle is constructed once here and passed by reference into
	// each component; nothing holds ambient global connection state.
	logger.Info("Connecting to Postgres...")
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Redis backs the leaderboard cache; the service degrades to uncached
	// reads when it is unavailable.
	var cacheService *storage.CacheService
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, leaderboard cache disabled")
	} else {
		defer redis.Close()
		cacheService = storage.NewCacheService(redis, cfg.Cache.TTL)
	}

	logger.Info("Store connections established")

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	signInRepo := storage.NewSignInRepository(postgres)
	ledgerRepo := storage.NewLedgerRepository(postgres)
	summaryRepo := storage.NewSummaryRepository(postgres)

	// Initialize services
	var leaderboardCache service.LeaderboardCache
	if cacheService != nil {
		leaderboardCache = cacheService
	}

	signInService := service.NewSignInService(
		postgres,
		userRepo,
		signInRepo,
		ledgerRepo,
		summaryRepo,
		leaderboardCache,
		cfg.Calendar.Location,
	)
	summaryService := service.NewSummaryService(
		userRepo,
		signInRepo,
		ledgerRepo,
		summaryRepo,
		cfg.Calendar.Location,
	)
	leaderboardService := service.NewLeaderboardService(summaryRepo, leaderboardCache)
	adjustmentService := service.NewAdjustmentService(
		postgres,
		userRepo,
		ledgerRepo,
		summaryRepo,
		leaderboardCache,
	)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
		AdminToken:      cfg.Admin.Token,
	}

	server := api.NewServer(
		serverConfig,
		signInService,
		summaryService,
		leaderboardService,
		adjustmentService,
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
