package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/internal/transactions"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/instance"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/metrics"
	"github.com/angelmondragon/dispo-backend/pkg/migrate"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/dispo-backend/pkg/outbox/registry"
	"github.com/angelmondragon/dispo-backend/pkg/pubsub"
	"github.com/angelmondragon/dispo-backend/pkg/redis"
)

const serviceKind = "dispo-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	idempotencyManager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	dispoMetrics := metrics.NewDispoMetrics(prometheus.DefaultRegisterer)
	txService, err := transactions.NewService(
		dbClient,
		candidates.NewRepository(dbClient.DB()),
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		logg,
		dispoMetrics,
	)
	requireResource(ctx, logg, "transaction service", err)

	consumer, err := transactions.NewConsumer(
		txService,
		eventRegistry,
		pubsubClient.TransactionsSubscription(),
		idempotencyManager,
		logg,
	)
	requireResource(ctx, logg, "transaction consumer", err)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		PubSub:     pubsubClient,
		Consumer:   consumer,
		RedisStats: redisClient.PoolStats,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
		"instance":    instance.GetID("worker-0"),
	})
	logg.Info(runCtx, "dispo worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "dispo worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "dispo worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
