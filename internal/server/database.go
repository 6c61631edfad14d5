package server

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	repo "github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

// Pinger reports whether the database answers.
type Pinger func(ctx context.Context) error

// DBPinger pings drv, bounded by timeout.
func DBPinger(drv *entsql.Driver, logger *slog.Logger, timeout time.Duration) Pinger {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context) error {
		logger.Debug("pinging database")
		if err := repo.HealthCheck(ctx, drv, timeout); err != nil {
			logger.Error("database ping failed", "error", err)
			return err
		}
		logger.Debug("database ping successful")
		return nil
	}
}
