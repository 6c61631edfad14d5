package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         UUID PRIMARY KEY,
		cnpj       TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS fiscal_data (
		id         UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		period     TEXT NOT NULL,
		rbt12      NUMERIC(18,2) NOT NULL DEFAULT 0,
		entrada    NUMERIC(18,2) NOT NULL DEFAULT 0,
		saida      NUMERIC(18,2) NOT NULL DEFAULT 0,
		imposto    NUMERIC(18,2) NOT NULL DEFAULT 0,
		servicos   NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (company_id, period)
	)`,
	`CREATE INDEX IF NOT EXISTS fiscal_data_company_idx ON fiscal_data (company_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         TEXT PRIMARY KEY,
		cnpj       TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS fiscal_data (
		id         TEXT PRIMARY KEY,
		company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		period     TEXT NOT NULL,
		rbt12      NUMERIC NOT NULL DEFAULT 0,
		entrada    NUMERIC NOT NULL DEFAULT 0,
		saida      NUMERIC NOT NULL DEFAULT 0,
		imposto    NUMERIC NOT NULL DEFAULT 0,
		servicos   NUMERIC NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (company_id, period)
	)`,
	`CREATE INDEX IF NOT EXISTS fiscal_data_company_idx ON fiscal_data (company_id)`,
}

// ApplySchema creates the companies and fiscal_data tables when missing.
func ApplySchema(ctx context.Context, drv dialect.ExecQuerier, name string) error {
	var stmts []string
	switch name {
	case dialect.Postgres:
		stmts = postgresSchema
	case dialect.SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("apply schema: unsupported dialect %q", name)
	}
	for _, stmt := range stmts {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return common.WrapError(err, "apply schema")
		}
	}
	return nil
}
