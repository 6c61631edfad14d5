package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/adonai404/empresas-imperial-sub001/constants"
)

func (h *handlers) exportFiscalData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, err := h.Export.ExportFiscalDataXLSX(r.Context())
	if err != nil {
		h.Logger.Error("export.fiscal_data.failed", "error", err)
		writeAppError(w, err)
		return
	}
	h.Logger.Info("export.fiscal_data.ok", "bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds())
	attachment(w, constants.XLSXContentType, fmt.Sprintf("dados-fiscais-%s.xlsx", time.Now().Format("2006-01-02")))
	_, _ = w.Write(data)
}
