package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dispo-backend/api/routes"
	"github.com/angelmondragon/dispo-backend/internal/candidates"
	"github.com/angelmondragon/dispo-backend/internal/partnersync"
	"github.com/angelmondragon/dispo-backend/internal/trace"
	"github.com/angelmondragon/dispo-backend/internal/transactions"
	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/instance"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/metrics"
	"github.com/angelmondragon/dispo-backend/pkg/migrate"
	"github.com/angelmondragon/dispo-backend/pkg/outbox"
	"github.com/angelmondragon/dispo-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	dispoMetrics := metrics.NewDispoMetrics(registry)

	txService, err := transactions.NewService(
		dbClient,
		candidates.NewRepository(dbClient.DB()),
		outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		logg,
		dispoMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID("local"),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:                dbClient,
			Redis:             redisClient,
			IdempotencyStore:  redisClient,
			MetricsGatherer:   registry,
			HUTraces:          trace.NewRepository(dbClient.DB(), cfg.Trace, logg, dispoMetrics),
			TransactionEvents: txService,
			Procurement:       partnersync.NewNullAgent(logg),
			OutboxDLQ:         outbox.NewDLQRepository(dbClient.DB()),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
