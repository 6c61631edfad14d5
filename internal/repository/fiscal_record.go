package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

const fiscalDataTable = "fiscal_data"

var fiscalColumns = []string{"id", "company_id", "period", "rbt12", "entrada", "saida", "imposto", "servicos"}

type FiscalRecordRepository interface {
	GetByCompanyAndPeriod(ctx context.Context, companyID uuid.UUID, period string) (*entity.FiscalRecord, error)
	Create(ctx context.Context, rec *entity.FiscalRecord) (uuid.UUID, error)
	UpdateAmounts(ctx context.Context, id uuid.UUID, amounts entity.FiscalAmounts) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*entity.FiscalRecord, error)
	Count(ctx context.Context) (int, error)
}

type fiscalRecordRepository struct {
	drv    dialect.Driver
	logger *slog.Logger
	now    func() time.Time
}

func NewFiscalRecordRepository(drv dialect.Driver, logger *slog.Logger) FiscalRecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fiscalRecordRepository{
		drv:    drv,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *fiscalRecordRepository) GetByCompanyAndPeriod(ctx context.Context, companyID uuid.UUID, period string) (*entity.FiscalRecord, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select(fiscalColumns...).
		From(b.Table(fiscalDataTable)).
		Where(entsql.And(
			entsql.EQ("company_id", companyID),
			entsql.EQ("period", period),
		)).
		Limit(1).
		Query()
	list, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get fiscal record", "company_id", companyID, "period", period, "error", err)
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("fiscal record %s %s: %w", companyID, period, common.ErrNotFound)
	}
	return list[0], nil
}

func (r *fiscalRecordRepository) Create(ctx context.Context, rec *entity.FiscalRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Insert(fiscalDataTable).
		Columns(fiscalColumns...).
		Values(id, rec.CompanyID, rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto, rec.Servicos).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create fiscal record", "company_id", rec.CompanyID, "period", rec.Period, "error", err)
		return uuid.Nil, err
	}
	return id, nil
}

func (r *fiscalRecordRepository) UpdateAmounts(ctx context.Context, id uuid.UUID, amounts entity.FiscalAmounts) error {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Update(fiscalDataTable).
		Set("entrada", amounts.Entrada).
		Set("saida", amounts.Saida).
		Set("imposto", amounts.Imposto).
		Set("servicos", amounts.Servicos).
		Set("updated_at", r.now()).
		Where(entsql.EQ("id", id)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to update fiscal record", "id", id, "error", err)
		return err
	}
	return nil
}

func (r *fiscalRecordRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*entity.FiscalRecord, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.Select(fiscalColumns...).
		From(b.Table(fiscalDataTable)).
		Where(entsql.EQ("company_id", companyID)).
		OrderBy("period").
		Query()
	list, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list fiscal records", "company_id", companyID, "error", err)
		return nil, err
	}
	return list, nil
}

func (r *fiscalRecordRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.drv, fiscalDataTable)
}

func (r *fiscalRecordRepository) query(ctx context.Context, query string, args []any) ([]*entity.FiscalRecord, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.FiscalRecord
	for rows.Next() {
		rec := &entity.FiscalRecord{}
		if err := rows.Scan(&rec.ID, &rec.CompanyID, &rec.Period, &rec.RBT12, &rec.Entrada, &rec.Saida, &rec.Imposto, &rec.Servicos); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
