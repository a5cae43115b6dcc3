// Command api-server serves the orderdesk HTTP API and runs the order
// expiration sweep.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/orderdesk/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		lg.Info("Starting orderdesk",
			zap.String("addr", cfg.Addr),
			zap.Duration("sweep_interval", cfg.Sweep.Interval),
			zap.Duration("expiry_window", cfg.Sweep.ExpiryWindow),
		)
		return appkg.Run(ctx, lg, m, cfg)
	})
}
