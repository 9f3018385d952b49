// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	metrics.Init()

	t := timeouts.Current()
	logger.Info("campuslink starting",
		zap.String("store_backend", appCfg.StoreBackend),
		zap.String("change_bus", appCfg.ChangeBus),
		zap.Duration("timeout_short", t.Short),
		zap.Duration("timeout_long", t.Long),
	)
	return nil
}
