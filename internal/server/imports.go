package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/batch"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
)

const msgNoResults = "Nenhum resultado de importação disponível"

func (h *handlers) startImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		h.Logger.Warn("imports.multipart.invalid", "error", err)
		writeError(w, http.StatusBadRequest, "Requisição de upload inválida")
		return
	}
	var uploads []ingest.File
	if r.MultipartForm != nil {
		uploads = ingest.FromUploads(r.MultipartForm.File["files"])
	}
	// Sizes come from the multipart headers, so reject before reading.
	if err := h.Imports.Validate(uploads); err != nil {
		writeAppError(w, err)
		return
	}

	for _, u := range uploads {
		if !ingest.IsPDF(u.Name(), ingest.ContentType(u)) {
			h.Logger.Warn("imports.upload.not_pdf", "filename", u.Name(), "content_type", ingest.ContentType(u))
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", constants.MsgNotPDF, u.Name()))
			return
		}
	}

	// net/http removes multipart temp files when the handler returns while
	// the run continues in the background.
	files := make([]ingest.File, 0, len(uploads))
	for _, u := range uploads {
		mf, err := readAll(u)
		if err != nil {
			h.Logger.Error("imports.upload.read_failed", "filename", u.Name(), "error", err)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %s", constants.MsgFileUnreadable, u.Name()))
			return
		}
		files = append(files, mf)
	}

	if err := h.Imports.Start(r.Context(), files); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.Imports.Snapshot())
}

func readAll(f ingest.File) (*ingest.MemoryFile, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return &ingest.MemoryFile{FileName: f.Name(), Data: data}, nil
}

func (h *handlers) importState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Imports.Snapshot())
}

func (h *handlers) resetImport(w http.ResponseWriter, _ *http.Request) {
	h.Imports.Reset()
	writeJSON(w, http.StatusOK, h.Imports.Snapshot())
}

func (h *handlers) errorsCSV(w http.ResponseWriter, r *http.Request) {
	sum, ok := h.summary(w)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := batch.ErrorReportCSV(&buf, sum); err != nil {
		h.Logger.Error("imports.report.csv_failed", "error", err)
		writeAppError(w, err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", reportName("csv"))
	_, _ = w.Write(buf.Bytes())
}

func (h *handlers) errorsXLSX(w http.ResponseWriter, r *http.Request) {
	sum, ok := h.summary(w)
	if !ok {
		return
	}
	data, err := batch.ErrorReportXLSX(sum)
	if err != nil {
		h.Logger.Error("imports.report.xlsx_failed", "error", err)
		writeAppError(w, err)
		return
	}
	attachment(w, constants.XLSXContentType, reportName("xlsx"))
	_, _ = w.Write(data)
}

func (h *handlers) summary(w http.ResponseWriter) (batch.Summary, bool) {
	st := h.Imports.Snapshot()
	if st.Summary == nil {
		writeAppError(w, common.NewAppError("NOT_FOUND", msgNoResults, common.ErrNotFound))
		return batch.Summary{}, false
	}
	return *st.Summary, true
}

func reportName(ext string) string {
	return fmt.Sprintf("erros-importacao-%s.%s", time.Now().Format("2006-01-02"), ext)
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
}
