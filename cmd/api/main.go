package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/carebridge/notification-engine/internal/config"
	"github.com/carebridge/notification-engine/internal/dispatch"
	"github.com/carebridge/notification-engine/internal/handler"
	"github.com/carebridge/notification-engine/internal/infra/postgresql"
	"github.com/carebridge/notification-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/carebridge/notification-engine/internal/infra/redis"
	"github.com/carebridge/notification-engine/internal/observability"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/carebridge/notification-engine/internal/template"
	"github.com/carebridge/notification-engine/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "api")
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
	preferences := repository.NewGormPreferenceRepo(db)
	templates := repository.NewGormTemplateRepo(db)
	recipients := repository.NewGormRecipientRepo(db)
	inbox := repository.NewGormInboxRepo(db)

	registry, err := provider.NewRegistry(cfg, inbox)
	if err != nil {
		logger.Fatal("provider registry initialization failed", zap.Error(err))
	}
	logger.Info("providers configured",
		zap.Any("channels", registry.Configured()),
	)

	renderer, err := template.NewEngine(templates)
	if err != nil {
		logger.Fatal("template engine initialization failed", zap.Error(err))
	}

	resolver, err := dispatch.NewChannelResolver(preferences, registry)
	if err != nil {
		logger.Fatal("channel resolver initialization failed", zap.Error(err))
	}

	sender, err := dispatch.NewSender(logs, registry, cfg.SendTimeout(), logger)
	if err != nil {
		logger.Fatal("sender initialization failed", zap.Error(err))
	}

	dispatcher, err := dispatch.NewDispatcher(
		logs,
		recipients,
		resolver,
		renderer,
		sender,
		cfg.AppBaseURL,
		cfg.MaxRetries,
		cfg.DispatchConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	sender.SetMetrics(metrics)
	dispatcher.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "notification-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterDispatchRoutes(app, dispatcher); err != nil {
		logger.Fatal("failed to register dispatch routes", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, logs); err != nil {
		logger.Fatal("failed to register notification routes", zap.Error(err))
	}
	if err := handler.RegisterInboxRoutes(app, inbox); err != nil {
		logger.Fatal("failed to register inbox routes", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api server")
		if err := app.Shutdown(); err != nil {
			logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("notification-engine api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("server stopped unexpectedly", zap.Error(err))
	}
}
