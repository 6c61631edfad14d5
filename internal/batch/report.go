package batch

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

var reportHeader = []string{"Arquivo", "Erro"}

func failed(s Summary) []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Status != constants.FileStatusSuccess {
			out = append(out, r)
		}
	}
	return out
}

// ErrorReportCSV writes one row per failed file under the Arquivo,Erro header.
func ErrorReportCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range failed(s) {
		if err := cw.Write([]string{r.Filename, r.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ErrorReportXLSX returns the same rows as ErrorReportCSV as a workbook.
func ErrorReportXLSX(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Erros"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	row := 2
	for _, r := range failed(s) {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.Filename)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Message)
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 40)
	_ = f.SetColWidth(sheet, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "xlsx write")
	}
	return buf.Bytes(), nil
}
