package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	"github.com/angelmondragon/stackfinderz-backend/internal/cron"
	"github.com/angelmondragon/stackfinderz-backend/internal/stats"
	"github.com/angelmondragon/stackfinderz-backend/pkg/bigquery"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/metrics"
	"github.com/angelmondragon/stackfinderz-backend/pkg/migrate"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/stackfinderz-backend/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
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
	cronMetrics := metrics.NewCronJobMetrics(registry)
	reviewMetrics := metrics.NewReviewMetrics(registry)

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	reconcile, err := cron.NewReconcileJob(cron.ReconcileJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: contributions.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outboxRepo, logg),
		Metrics:    reviewMetrics,
		BatchSize:  cfg.Cron.ReconcileBatchSize,
		Grace:      cfg.Cron.ReconcileGrace,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	jobs := []cron.Job{reconcile, retention}

	if cfg.BigQuery.Enabled {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()

		statsService, err := stats.NewService(stats.NewRepository(dbClient.DB()))
		if err != nil {
			logg.Error(context.Background(), "failed to create stats service", err)
			os.Exit(1)
		}
		snapshot, err := cron.NewStatsSnapshotJob(cron.StatsSnapshotJobParams{
			Logger:   logg,
			Stats:    statsService,
			Inserter: bqClient,
			Table:    cfg.BigQuery.StatsTable,
			Marker:   redisClient,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stats snapshot job", err)
			os.Exit(1)
		}
		jobs = append(jobs, snapshot)
	}

	jobRegistry, err := cron.NewRegistry(jobs...)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobRegistry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        jobRegistry.Names(),
	})

	metricsServer := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer metricsServer.Close()

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
