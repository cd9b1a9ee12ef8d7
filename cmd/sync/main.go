// Package main provides a CLI tool for running one forced sync cycle.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fleet-fines/internal/config"
	"github.com/fleet-fines/internal/logging"
	"github.com/fleet-fines/internal/models"
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

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		logger.WithError(err).Fatal("Invalid sync timezone")
	}

	bounds, err := syncer.ParseBounds(cfg.Sync.LowerBound, cfg.Sync.UpperBound, cfg.Sync.Overlap, loc)
	if err != nil {
		logger.WithError(err).Fatal("Invalid sync bounds")
	}

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

	oracle, err := source.NewOracleClient(&cfg.Oracle)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Globus source")
	}
	defer oracle.Close()

	var sink syncer.AnalyticsSink
	if clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse); err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, skipping analytics mirror")
	} else {
		defer clickhouse.Close()
		sink = storage.NewAnalyticsRepository(clickhouse)
	}

	fineRepo := storage.NewFineRepository(postgres)
	syncLogRepo := storage.NewSyncLogRepository(postgres)
	syncState := storage.NewSyncStateStore(redis)

	orchestrator := syncer.NewOrchestrator(oracle, fineRepo, syncLogRepo, sink, bounds, cfg.Oracle.CompanyCode)
	gate := syncer.NewGate(orchestrator, syncState, loc)

	ctx := logging.WithLogger(context.Background(), logger)
	report, err := gate.ForceSync(ctx, models.TriggerManual)
	if err != nil {
		logger.WithError(err).Fatal("Sync failed")
	}

	fmt.Printf("Sync completed: window %s to %s, found %d, saved %d, errors %d in %s\n",
		report.Window.Start.Format(time.RFC3339),
		report.Window.End.Format(time.RFC3339),
		report.Found, report.Saved, report.Errors,
		report.Duration.Round(time.Millisecond),
	)
}
