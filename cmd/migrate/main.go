package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	"github.com/angelmondragon/dispo-backend/pkg/migrate"
)

type options struct {
	cmd     migrate.Command
	dir     string
	name    string
	version string
}

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	rawCmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cmd, err := migrate.ParseCommand(*rawCmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": cmd,
		"dir": *dir,
	})

	opts := options{cmd: cmd, dir: *dir, name: *name, version: *version}
	if err := run(ctx, cfg, logg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	switch opts.cmd {
	case migrate.CommandCreate:
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case migrate.CommandValidate:
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	case migrate.CommandVersion:
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	if dbClient.IsSQLite() {
		logg.Info(ctx, "sqlite database detected, running auto-migrate")
		return migrate.AutoMigrate(dbClient.DB())
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, opts.dir)
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate ready")
	return runner.Exec(ctx, opts.cmd, opts.version)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
