package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/stackfinderz-backend/api/routes"
	"github.com/angelmondragon/stackfinderz-backend/internal/auth"
	"github.com/angelmondragon/stackfinderz-backend/internal/bookmarks"
	"github.com/angelmondragon/stackfinderz-backend/internal/contributions"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/internal/stats"
	"github.com/angelmondragon/stackfinderz-backend/internal/users"
	"github.com/angelmondragon/stackfinderz-backend/pkg/auth/session"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/metrics"
	"github.com/angelmondragon/stackfinderz-backend/pkg/migrate"
	"github.com/angelmondragon/stackfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/stackfinderz-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	stackRepo := stacks.NewRepository(conn)
	stackService, err := stacks.NewService(stackRepo)
	exitOnErr(logg, "failed to create stack service", err)

	bookmarkService, err := bookmarks.NewService(bookmarks.NewRepository(conn), stackRepo)
	exitOnErr(logg, "failed to create bookmark service", err)

	contributionService, err := contributions.NewService(contributions.ServiceParams{
		Repo:           contributions.NewRepository(conn),
		Stacks:         stackRepo,
		DB:             dbClient,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		Metrics:        metrics.NewReviewMetrics(registry),
		Logger:         logg,
		NotesMaxLength: cfg.Review.NotesMaxLength,
	})
	exitOnErr(logg, "failed to create contribution service", err)

	statsService, err := stats.NewService(stats.NewRepository(conn))
	exitOnErr(logg, "failed to create stats service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		Bookmarks:      bookmarkService,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	exitOnErr(logg, "failed to create auth service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			registry,
			authService,
			stackService,
			bookmarkService,
			contributionService,
			statsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
