package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

const (
	msgLookupFailed = "Erro ao buscar empresa"
	msgCreateFailed = "Erro ao salvar empresa"
)

// Service resolves companies by CNPJ and serves the read-only listings.
type Service struct {
	companyRepo repository.CompanyRepository
	logger      *slog.Logger
}

// NewService creates a new company service.
func NewService(companyRepo repository.CompanyRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		companyRepo: companyRepo,
		logger:      logger,
	}
}

// ResolveCompany returns the id of the company with the given CNPJ, creating
// it with name when absent. An existing company keeps its stored name.
func (s *Service) ResolveCompany(ctx context.Context, cnpj, name string) (uuid.UUID, error) {
	existing, err := s.companyRepo.GetByCNPJ(ctx, cnpj)
	switch {
	case err == nil:
		s.logger.Debug("company.resolve.found", "company_id", existing.ID, "cnpj", cnpj)
		return existing.ID, nil
	case !errors.Is(err, common.ErrNotFound):
		return uuid.Nil, common.NewStorageError(msgLookupFailed, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DisplayName(cnpj)
	}

	id, created, err := s.companyRepo.Insert(ctx, cnpj, name)
	if err != nil {
		return uuid.Nil, common.NewStorageError(msgCreateFailed, err)
	}
	if created {
		s.logger.Info("company.resolve.created", "company_id", id, "cnpj", cnpj, "name", name)
		return id, nil
	}

	// Lost a race with another writer; the row exists now.
	existing, err = s.companyRepo.GetByCNPJ(ctx, cnpj)
	if err != nil {
		return uuid.Nil, common.NewStorageError(msgLookupFailed, err)
	}
	s.logger.Info("company.resolve.conflict", "company_id", existing.ID, "cnpj", cnpj)
	return existing.ID, nil
}

// ListCompanies returns every company ordered by name.
func (s *Service) ListCompanies(ctx context.Context) ([]*entity.Company, error) {
	list, err := s.companyRepo.List(ctx)
	if err != nil {
		return nil, common.NewStorageError(msgLookupFailed, err)
	}
	return list, nil
}

// GetCompany returns one company; a missing id yields ErrNotFound.
func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	c, err := s.companyRepo.GetByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewAppError("NOT_FOUND", "Empresa não encontrada", err)
	}
	if err != nil {
		return nil, common.NewStorageError(msgLookupFailed, err)
	}
	return c, nil
}

// DisplayName formats a 14-digit CNPJ as 00.000.000/0000-00 for companies
// whose documents carry no legal name.
func DisplayName(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", cnpj[0:2], cnpj[2:5], cnpj[5:8], cnpj[8:12], cnpj[12:14])
}
