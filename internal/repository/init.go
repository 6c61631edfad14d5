package repository

import (
	"context"
	"errors"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database bundles an opened driver with the pool behind it, if any.
type Database struct {
	Driver *entsql.Driver
	Pool   *pgxpool.Pool // nil for SQLite
	logger *slog.Logger
}

// Cleanup closes the driver and the pool.
func (d *Database) Cleanup() {
	Close(d.Driver, d.Pool, d.logger)
}

// InitDatabase opens Postgres from cfg.DSN, or a private in-memory SQLite
// database when inmem is set, and applies the schema.
func InitDatabase(ctx context.Context, cfg Config, inmem bool, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db := &Database{logger: logger}
	if inmem {
		drv, err := OpenSQLite(ctx, InMemoryDSN, logger)
		if err != nil {
			return nil, err
		}
		db.Driver = drv
	} else {
		if cfg.DSN == "" {
			return nil, errors.New("DB_URL is required unless running in-memory")
		}
		drv, pool, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		db.Driver, db.Pool = drv, pool
	}

	name := dialect.Postgres
	if inmem {
		name = dialect.SQLite
	}
	if err := ApplySchema(ctx, db.Driver, name); err != nil {
		logger.Error("failed to apply schema", "dialect", name, "error", err)
		db.Cleanup()
		return nil, err
	}
	logger.Info("database ready", "dialect", name, "inmem", inmem)
	return db, nil
}
