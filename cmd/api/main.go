package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smscast/internal/config"
	"smscast/internal/dispatch"
	"smscast/internal/guard"
	"smscast/internal/handler"
	"smscast/internal/infra/postgresql"
	"smscast/internal/infra/postgresql/migrations"
	infraredis "smscast/internal/infra/redis"
	"smscast/internal/observability"
	"smscast/internal/plan"
	"smscast/internal/queue"
	"smscast/internal/ratelimit"
	"smscast/internal/repository"
	"smscast/internal/service"
	"smscast/internal/transport"
)

const (
	shutdownTimeout = 10 * time.Second
	consumePrefetch = 16
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
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

	var limiter ratelimit.Limiter
	limiter, err = infraredis.NewRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Warn("redis rate limiter unavailable, using local limiter", zap.Error(err))
		limiter = ratelimit.NewLocal(cfg.RateLimitPerSec)
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, consumePrefetch, logger)

	port, err := buildTransport(cfg, publisher)
	if err != nil {
		logger.Fatal("transport initialization failed", zap.Error(err))
	}
	logger.Info("transport selected", zap.String("kind", transportKind(cfg)))

	planner := plan.NewPlanner(cfg.SMSPartLimit, cfg.DefaultCountryCode, logger)
	history := repository.NewGormHistoryRepo(db)
	directory := service.NewStaticDirectory()

	opts := dispatch.Options{
		DelayBetweenRecipients: cfg.DelayBetweenRecipients(),
		DelayBetweenParts:      cfg.DelayBetweenParts(),
		SendTimeout:            cfg.SendTimeout(),
	}

	campaigns, err := service.NewCampaignService(
		planner, history, port, limiter, guardFor(cfg, logger), directory, opts, logger,
	)
	if err != nil {
		logger.Fatal("campaign service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	campaigns.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterOpsRoutes(app, sqlDB, rdb, metrics)
	if err := handler.RegisterDispatchRoutes(app, campaigns); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("smscast api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		logger.Info("receipt consumer started", zap.String("queue", queue.ReceiptQueue))
		if err := consumer.Consume(groupCtx, campaigns.IngestReceipt); err != nil {
			return fmt.Errorf("receipt consumer stopped: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := campaigns.Shutdown(shutdownCtx); err != nil {
			logger.Warn("campaign shutdown incomplete", zap.Error(err))
		}
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api exited with error", zap.Error(err))
	}
	logger.Info("smscast api stopped")
}

func buildTransport(cfg *config.Config, publisher queue.Publisher) (transport.Port, error) {
	if cfg.GatewayURL != "" {
		return transport.NewHTTPGateway(cfg.GatewayURL)
	}
	return transport.NewAMQPPort(publisher)
}

func transportKind(cfg *config.Config) string {
	if cfg.GatewayURL != "" {
		return "http"
	}
	return "amqp"
}

func guardFor(cfg *config.Config, logger *zap.Logger) guard.Guard {
	if !cfg.GuardEnabled {
		return guard.Noop{}
	}
	return guard.ForPlatform(logger)
}
