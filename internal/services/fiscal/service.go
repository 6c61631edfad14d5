package fiscal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

const msgSaveFailed = "Erro ao salvar dados fiscais"

// Service writes imported fiscal data, one row per company and period.
type Service struct {
	recordRepo repository.FiscalRecordRepository
	logger     *slog.Logger
}

// NewService creates a new fiscal record service.
func NewService(recordRepo repository.FiscalRecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// SaveFiscalRecord updates the (company, period) row when it exists and
// inserts it otherwise. Null amounts are stored as zero; rbt12 starts at zero
// and is never touched by an import.
func (s *Service) SaveFiscalRecord(ctx context.Context, companyID uuid.UUID, data entity.ExtractedFiscalData) error {
	amounts := entity.AmountsFrom(data)

	existing, err := s.recordRepo.GetByCompanyAndPeriod(ctx, companyID, data.Periodo)
	switch {
	case err == nil:
		if err := s.recordRepo.UpdateAmounts(ctx, existing.ID, amounts); err != nil {
			return common.NewStorageError(msgSaveFailed, err)
		}
		s.logger.Info("fiscal.save.updated", "record_id", existing.ID, "company_id", companyID, "period", data.Periodo)
		return nil
	case !errors.Is(err, common.ErrNotFound):
		return common.NewStorageError(msgSaveFailed, err)
	}

	id, err := s.recordRepo.Create(ctx, &entity.FiscalRecord{
		CompanyID: companyID,
		Period:    data.Periodo,
		RBT12:     decimal.Zero,
		Entrada:   amounts.Entrada,
		Saida:     amounts.Saida,
		Imposto:   amounts.Imposto,
		Servicos:  amounts.Servicos,
	})
	if err != nil {
		return common.NewStorageError(msgSaveFailed, err)
	}
	s.logger.Info("fiscal.save.created", "record_id", id, "company_id", companyID, "period", data.Periodo)
	return nil
}

// ListByCompany returns a company's fiscal rows ordered by period.
func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*entity.FiscalRecord, error) {
	list, err := s.recordRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, common.NewStorageError("Erro ao buscar dados fiscais", err)
	}
	return list, nil
}
