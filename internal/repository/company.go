package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

const companiesTable = "companies"

type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error)
	GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error)
	// Insert adds a company unless the cnpj already exists. The bool is false
	// when a concurrent or earlier insert won.
	Insert(ctx context.Context, cnpj, name string) (uuid.UUID, bool, error)
	List(ctx context.Context) ([]*entity.Company, error)
	Count(ctx context.Context) (int, error)
}

type companyRepository struct {
	drv    dialect.Driver
	logger *slog.Logger
}

func NewCompanyRepository(drv dialect.Driver, logger *slog.Logger) CompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &companyRepository{
		drv:    drv,
		logger: logger,
	}
}

func (r *companyRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select("id", "cnpj", "name").
		From(b.Table(companiesTable)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()
	return r.one(ctx, query, args, fmt.Sprintf("company %s", id))
}

func (r *companyRepository) GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select("id", "cnpj", "name").
		From(b.Table(companiesTable)).
		Where(entsql.EQ("cnpj", cnpj)).
		Limit(1).
		Query()
	return r.one(ctx, query, args, fmt.Sprintf("company cnpj %s", cnpj))
}

func (r *companyRepository) one(ctx context.Context, query string, args []any, what string) (*entity.Company, error) {
	list, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get company", "lookup", what, "error", err)
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return list[0], nil
}

func (r *companyRepository) Insert(ctx context.Context, cnpj, name string) (uuid.UUID, bool, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Insert(companiesTable).
		Columns("id", "cnpj", "name").
		Values(uuid.New(), cnpj, name).
		OnConflict(entsql.ConflictColumns("cnpj"), entsql.DoNothing()).
		Returning("id").
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to create company", "cnpj", cnpj, "error", err)
		return uuid.Nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return uuid.Nil, false, err
		}
		return uuid.Nil, false, nil
	}
	var id uuid.UUID
	if err := rows.Scan(&id); err != nil {
		return uuid.Nil, false, err
	}
	return id, true, rows.Err()
}

func (r *companyRepository) List(ctx context.Context) ([]*entity.Company, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select("id", "cnpj", "name").
		From(b.Table(companiesTable)).
		OrderBy("name", "cnpj").
		Query()
	list, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list companies", "error", err)
		return nil, err
	}
	return list, nil
}

func (r *companyRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.drv, companiesTable)
}

func (r *companyRepository) query(ctx context.Context, query string, args []any) ([]*entity.Company, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Company
	for rows.Next() {
		c := &entity.Company{}
		if err := rows.Scan(&c.ID, &c.CNPJ, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func count(ctx context.Context, drv dialect.Driver, table string) (int, error) {
	b := entsql.Dialect(drv.Dialect())
	query, args := b.Select(entsql.Count("*")).From(b.Table(table)).Query()
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
