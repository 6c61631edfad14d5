package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
)

type extractRequest struct {
	Filename      string `json:"filename"`
	ExtractedText string `json:"extractedText"`
}

type extractResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const msgEmptyText = "Texto extraído não informado"

// extractFiscalData answers the contract the batch pipeline's fiscal client
// speaks: 429 and 402 for upstream limits, 200 with success=false when the
// model output is unusable.
func (h *handlers) extractFiscalData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, extractResponse{Error: "Corpo da requisição inválido"})
		return
	}
	if strings.TrimSpace(req.ExtractedText) == "" {
		writeJSON(w, http.StatusBadRequest, extractResponse{Error: msgEmptyText})
		return
	}

	data, raw, err := h.Extractor.ExtractFields(r.Context(), llm.ExtractRequest{
		Filename: req.Filename,
		Text:     req.ExtractedText,
	})
	if err != nil {
		status, msg := extractionStatus(err)
		h.Logger.Warn("extract.failed",
			"req_id", common.RequestIDFromContext(r.Context()),
			"filename", req.Filename,
			"status", status,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		writeJSON(w, status, extractResponse{Error: msg})
		return
	}

	if len(raw) == 0 {
		if raw, err = json.Marshal(wireFields(data)); err != nil {
			writeJSON(w, http.StatusInternalServerError, extractResponse{Error: constants.MsgExtractionFailed})
			return
		}
	}
	h.Logger.Info("extract.ok",
		"req_id", common.RequestIDFromContext(r.Context()),
		"filename", req.Filename,
		"cnpj", data.CNPJ,
		"periodo", data.Periodo,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: raw})
}

func extractionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, constants.MsgRateLimited
	case errors.Is(err, common.ErrQuotaExhausted):
		return http.StatusPaymentRequired, constants.MsgQuotaExhausted
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrParse):
		return http.StatusOK, common.UserMessage(err)
	default:
		msg := common.UserMessage(err)
		if msg == "" {
			msg = constants.MsgExtractionFailed
		}
		return http.StatusInternalServerError, msg
	}
}

// wireFields renders amounts as JSON numbers; decimal marshals them quoted.
func wireFields(d entity.ExtractedFiscalData) map[string]any {
	num := func(v decimal.NullDecimal) any {
		if !v.Valid {
			return nil
		}
		return json.Number(v.Decimal.String())
	}
	out := map[string]any{
		"empresa":  d.Empresa,
		"cnpj":     d.CNPJ,
		"periodo":  d.Periodo,
		"entradas": num(d.Entradas),
		"saidas":   num(d.Saidas),
		"servicos": num(d.Servicos),
		"icms":     num(d.ICMS),
		"pis":      num(d.PIS),
		"cofins":   num(d.COFINS),
	}
	if d.RegimeTributario != nil {
		out["regime_tributario"] = *d.RegimeTributario
	}
	return out
}
