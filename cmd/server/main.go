// Package main provides the API server entry point for the fleet fines service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleet-fines/internal/api"
	"github.com/fleet-fines/internal/config"
	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/source"
	"github.com/fleet-fines/internal/storage"
	"github.com/fleet-fines/internal/syncer"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Global().WithError(err).Fatal("Failed to load configuration")
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.Global()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.WithError(err).Fatal("Invalid sync timezone")
	}

	bounds, err := syncer.ParseBounds(cfg.Sync.LowerBound, cfg.Sync.UpperBound, cfg.Sync.Overlap, loc)
	if err != nil {
		logger.WithError(err).Fatal("Invalid sync bounds")
	}

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisClient(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	// ClickHouse only serves the aggregate views, so a missing analytics
	// store degrades those endpoints instead of blocking startup.
	var analytics *storage.AnalyticsRepository
	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, stats endpoints disabled")
	} else {
		defer clickhouse.Close()
		analytics = storage.NewAnalyticsRepository(clickhouse)
	}

	oracle, err := source.NewOracleClient(&cfg.Oracle)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Globus source")
	}
	defer oracle.Close()

	logger.Info("Database connections established")

	fineRepo := storage.NewFineRepository(postgres)
	syncLogRepo := storage.NewSyncLogRepository(postgres)
	syncState := storage.NewSyncStateStore(redis)

	var sink syncer.AnalyticsSink
	if analytics != nil {
		sink = analytics
	}
	orchestrator := syncer.NewOrchestrator(oracle, fineRepo, syncLogRepo, sink, bounds, cfg.Oracle.CompanyCode)
	gate := syncer.NewGate(orchestrator, syncState, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := syncer.NewScheduler(gate, cfg.Sync.DailyHour, loc)
	go scheduler.Run(logging.WithLogger(ctx, logger))

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    5 * time.Minute, // a gated read may run a full sync
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
	}

	var statsReader api.StatsReaderInterface
	if analytics != nil {
		statsReader = analytics
	}

	pingers := map[string]api.PingFunc{
		"postgres": postgres.Ping,
		"redis":    redis.Ping,
		"oracle":   oracle.Ping,
	}
	if clickhouse != nil && analytics != nil {
		pingers["clickhouse"] = clickhouse.Ping
	}

	server := api.NewServer(serverConfig, gate, fineRepo, syncLogRepo, statsReader, pingers)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
