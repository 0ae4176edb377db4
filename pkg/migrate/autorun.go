package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/db"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if client.IsSQLite() {
		ctx = logg.WithField(ctx, "env", cfg.App.Env)
		logg.Info(ctx, "running gorm auto-migrate (sqlite dev database)")
		if err := AutoMigrate(client.DB()); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	runner, err := NewRunner(sqlDB, DefaultDir)
	if err != nil {
		return err
	}
	if err := runner.Exec(ctx, CommandUp, ""); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}
