package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/stackfinderz-backend/internal/auth"
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/migrate"
)

type stackCreator interface {
	CreateIfMissing(ctx context.Context, input stacks.CreateInput) (bool, error)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "seed"

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	if err := seedAdmin(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to seed admin account", err)
		os.Exit(1)
	}

	stackService, err := stacks.NewService(stacks.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create stack service", err)
		os.Exit(1)
	}
	created, err := seedCatalog(ctx, stackService, sampleStacks)
	if err != nil {
		logg.Error(ctx, "failed to seed catalog", err)
		os.Exit(1)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"stacks_created": created,
		"stacks_total":   len(sampleStacks),
	}), "seed complete")
}

func seedAdmin(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client) error {
	if strings.TrimSpace(cfg.Seed.AdminPassword) == "" {
		logg.Warn(ctx, "STACKFINDERZ_SEED_ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}
	bootstrapper, err := auth.NewAdminBootstrapper(auth.AdminBootstrapParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}
	user, created, err := bootstrapper.EnsureAdmin(ctx, auth.AdminAccount{
		Username: cfg.Seed.AdminUsername,
		Email:    cfg.Seed.AdminEmail,
		Password: cfg.Seed.AdminPassword,
	})
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"created": created,
	}), "admin account ready")
	return nil
}

// seedCatalog inserts every sample missing from the catalog and keeps going
// past individual failures so one bad row does not hide the rest.
func seedCatalog(ctx context.Context, svc stackCreator, samples []stacks.Profile) (int, error) {
	var (
		created int
		errs    error
	)
	for _, profile := range samples {
		inserted, err := svc.CreateIfMissing(ctx, stacks.CreateInput{Profile: profile})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed %s: %w", profile.Name, err))
			continue
		}
		if inserted {
			created++
		}
	}
	return created, errs
}
