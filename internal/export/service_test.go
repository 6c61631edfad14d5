package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

func TestExportFiscalDataXLSX(t *testing.T) {
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, "", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = drv.Close() })
	if err := repository.ApplySchema(ctx, drv, drv.Dialect()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	companies := repository.NewCompanyRepository(drv, nil)
	records := repository.NewFiscalRecordRepository(drv, nil)

	alfa, _, _ := companies.Insert(ctx, "11111111000111", "Alfa")
	if _, _, err := companies.Insert(ctx, "22222222000122", "Beta"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for _, p := range []string{"01/2024", "02/2024"} {
		if _, err := records.Create(ctx, &entity.FiscalRecord{CompanyID: alfa, Period: p, Entrada: decimal.NewFromInt(10)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	raw, err := NewService(companies, records, nil).ExportFiscalDataXLSX(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer wb.Close()
	rows, err := wb.GetRows("Dados Fiscais")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	// header + two Alfa periods + Beta without data
	if len(rows) != 4 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "Alfa" || rows[1][2] != "01/2024" || rows[1][4] != "10" {
		t.Errorf("first data row = %v", rows[1])
	}
	if rows[3][0] != "Beta" || len(rows[3]) != 2 {
		t.Errorf("empty company row = %v", rows[3])
	}
}
