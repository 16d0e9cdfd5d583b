package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/carebridge/notification-engine/internal/config"
	"github.com/carebridge/notification-engine/internal/dispatch"
	"github.com/carebridge/notification-engine/internal/infra/postgresql"
	"github.com/carebridge/notification-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/carebridge/notification-engine/internal/infra/redis"
	"github.com/carebridge/notification-engine/internal/observability"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/carebridge/notification-engine/internal/sweep"
	"go.uber.org/zap"
)

const sweepLockKey = "sweep:lock"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "sweeper")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	logs := repository.NewGormLogRepo(db)
	recipients := repository.NewGormRecipientRepo(db)
	inbox := repository.NewGormInboxRepo(db)

	registry, err := provider.NewRegistry(cfg, inbox)
	if err != nil {
		logger.Fatal("provider registry initialization failed", zap.Error(err))
	}

	sender, err := dispatch.NewSender(logs, registry, cfg.SendTimeout(), logger)
	if err != nil {
		logger.Fatal("sender initialization failed", zap.Error(err))
	}

	processor, err := sweep.NewProcessor(
		logs,
		recipients,
		sender,
		cfg.ScheduledBatchSize,
		cfg.RetryBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("sweep processor initialization failed", zap.Error(err))
	}

	// Lock TTL matches the interval so a crashed holder frees the lock
	// before the next pass elsewhere.
	lock, err := infraredis.NewMutex(rdb, sweepLockKey, cfg.SweepInterval())
	if err != nil {
		logger.Fatal("sweep lock initialization failed", zap.Error(err))
	}

	runner, err := sweep.NewRunner(processor, lock, cfg.SweepInterval(), logger)
	if err != nil {
		logger.Fatal("sweep runner initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	sender.SetMetrics(metrics)
	runner.SetMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notification-engine sweeper started",
		zap.Duration("interval", cfg.SweepInterval()),
	)
	if err := runner.Start(ctx); err != nil {
		logger.Fatal("sweeper stopped unexpectedly", zap.Error(err))
	}
	logger.Info("sweeper shut down")
}
