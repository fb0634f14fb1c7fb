package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/db/models"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	dialect := DialectFor(cfg.FeatureFlags.UseSQLite)
	if dialect == DialectSQLite {
		// sqlite only backs local runs; the catalog tables owned elsewhere are created too.
		logg.Info(logg.WithField(ctx, "dialect", dialect), "auto-migrating sqlite schema")
		return client.DB().WithContext(ctx).AutoMigrate(
			&models.Category{},
			&models.Product{},
			&models.GroupOrder{},
			&models.Cart{},
			&models.CartItem{},
		)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "dialect": dialect})
	logg.Info(ctx, "running cart migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, dialect, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "cart migrations completed")
	return nil
}
