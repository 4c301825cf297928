package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/inventario/pkg/config"
	"github.com/angelmondragon/inventario/pkg/db"
	"github.com/angelmondragon/inventario/pkg/logger"
)

// MaybeRunDev brings the productos/ventas schema up to date on boot, but only
// in dev with INVENTARIO_AUTO_MIGRATE set. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		logg.Debug(ctx, "migrate.autorun_skipped")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "migrate.autorun_start")
	if err := Run(ctx, sqlDB, client.Driver(), "", "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logg.Info(ctx, "migrate.autorun_done")
	return nil
}
