package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brightlens-media/payouts-backend/internal/cron"
	"github.com/brightlens-media/payouts-backend/internal/directory"
	payoutsconsumer "github.com/brightlens-media/payouts-backend/internal/consumers/payouts"
	"github.com/brightlens-media/payouts-backend/internal/settings"
	"github.com/brightlens-media/payouts-backend/internal/settlement"
	"github.com/brightlens-media/payouts-backend/pkg/config"
	"github.com/brightlens-media/payouts-backend/pkg/db"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
	"github.com/brightlens-media/payouts-backend/pkg/metrics"
	"github.com/brightlens-media/payouts-backend/pkg/migrate"
	"github.com/brightlens-media/payouts-backend/pkg/pubsub"
	"github.com/brightlens-media/payouts-backend/pkg/redis"
	"github.com/brightlens-media/payouts-backend/pkg/stripe"
)

const lockKeyFormat = "payouts-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "payouts-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "payouts-worker"

	logg = logger.New(logger.Options{
		ServiceName: "payouts-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

	settlementRepo := settlement.NewRepository(dbClient.DB())
	directoryRepo := directory.NewRepository(dbClient.DB())
	settingsProvider, err := settings.NewProvider(settings.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings provider", err)
		os.Exit(1)
	}

	engine, err := settlement.NewService(settlementRepo, directoryRepo, settingsProvider, stripeClient, logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	consumer, err := payoutsconsumer.NewConsumer(
		engine,
		pubsubClient.OrderApprovedSubscription(),
		pubsubClient.OrderRefundedSubscription(),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts consumer", err)
		os.Exit(1)
	}

	sweeperLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper lock", err)
		os.Exit(1)
	}
	sweeperJob, err := cron.NewStuckLockJob(settlementRepo, logg, settlementMetrics, cfg.Settlement.StuckLockThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create stuck-lock sweeper", err)
		os.Exit(1)
	}
	sweeper, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweeperJob),
		Lock:     sweeperLock,
		Metrics:  jobMetrics,
		Interval: cfg.Settlement.SweeperInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
		Sweeper:  sweeper,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting payouts worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "payouts worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "payouts worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
