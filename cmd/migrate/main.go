package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/stackfinderz-backend/pkg/config"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|to|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	// create and validate only touch files
	switch opts.cmd {
	case "create":
		exitIf(createMigration(os.Stdout, opts))
		return
	case "validate":
		exitIf(validate(os.Stdout, opts))
		return
	}

	cfg, err := config.Load()
	exitIf(err)
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitIf(err)
	migrator, err := migrate.New(sqlDB, migrate.Source(opts.dir))
	exitIf(err)

	if err := runDB(ctx, os.Stdout, migrator, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration command complete")
}

func runDB(ctx context.Context, out io.Writer, m *migrate.Migrator, opts options) error {
	switch opts.cmd {
	case "up":
		applied, err := m.Up(ctx)
		if err == nil {
			fmt.Fprintf(out, "applied %d migration(s)\n", applied)
		}
		return err
	case "down":
		return m.Down(ctx)
	case "to":
		return m.To(ctx, opts.version)
	case "status":
		rows, err := m.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(out, rows)
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
}

func createMigration(out io.Writer, opts options) error {
	if opts.name == "" {
		return fmt.Errorf("missing -name for create")
	}
	dir := opts.dir
	if dir == "" {
		dir = migrate.SourceDir
	}
	path, err := migrate.CreateSQLMigration(dir, opts.name)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "created migration:", path)
	return nil
}

func validate(out io.Writer, opts options) error {
	versions, err := migrate.Validate(migrate.Source(opts.dir))
	if err != nil {
		return err
	}
	latest := "none"
	if len(versions) > 0 {
		latest = versions[len(versions)-1]
	}
	fmt.Fprintf(out, "%d migrations valid, latest %s\n", len(versions), latest)
	return nil
}

func printStatus(out io.Writer, rows []migrate.Status) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.Version, row.Name, applied)
	}
	return tw.Flush()
}

func exitIf(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
