package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	companiesRepo repository.CompanyRepository
	recordsRepo   repository.FiscalRecordRepository
	logger        *slog.Logger
}

func NewService(companies repository.CompanyRepository, records repository.FiscalRecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{companiesRepo: companies, recordsRepo: records, logger: logger}
}

// ExportFiscalDataXLSX returns a workbook with one row per company and period.
// Companies without fiscal rows are listed once with empty amounts.
func (s *Service) ExportFiscalDataXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	companies, err := s.companiesRepo.List(ctx)
	if err != nil {
		return nil, common.WrapError(err, "query companies")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Dados Fiscais"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Empresa",
		"CNPJ",
		"Período",
		"RBT12",
		"Entradas",
		"Saídas",
		"Serviços",
		"Imposto",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	records := 0
	for _, c := range companies {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		list, err := s.recordsRepo.ListByCompany(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("query fiscal data for %s: %w", c.CNPJ, err)
		}
		if len(list) == 0 {
			write(1, c.Name)
			write(2, c.CNPJ)
			row++
			continue
		}
		for _, r := range list {
			write(1, c.Name)
			write(2, c.CNPJ)
			write(3, r.Period)
			// Amounts go in as numbers so spreadsheet formulas work.
			write(4, r.RBT12.InexactFloat64())
			write(5, r.Entrada.InexactFloat64())
			write(6, r.Saida.InexactFloat64())
			write(7, r.Servicos.InexactFloat64())
			write(8, r.Imposto.InexactFloat64())
			row++
			records++
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 40) // company
	_ = f.SetColWidth(sheet, "B", "B", 18) // cnpj
	_ = f.SetColWidth(sheet, "C", "C", 10) // period
	_ = f.SetColWidth(sheet, "D", "H", 16) // amounts

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "xlsx write")
	}

	s.logger.Info("export.xlsx.ok",
		"companies", len(companies),
		"rows", records,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
