// Package fiscalapi calls the remote fiscal extraction endpoint and turns its
// answers into validated records or classified errors. It never retries.
package fiscalapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
)

type Config struct {
	Endpoint     string
	APIKey       string // sent as a bearer token when set
	Timeout      time.Duration
	MaxTextChars int // outgoing text cap in runes
}

// Request is the body accepted by the extraction endpoint.
type Request struct {
	Filename      string `json:"filename"`
	ExtractedText string `json:"extractedText"`
}

// Response is the body returned by the extraction endpoint.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var responseSchema = llm.MustCompileSchema("fiscal_response.json", llm.BuildFiscalJSONSchema(false))

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = constants.MaxTextChars
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// ExtractFields sends the document text to the endpoint and validates the
// returned record: the CNPJ is reduced to digits and must have 14 of them,
// and the period must be present in MM/YYYY form.
func (c *Client) ExtractFields(ctx context.Context, filename, text string) (entity.ExtractedFiscalData, error) {
	start := time.Now()
	payload := Request{
		Filename:      filename,
		ExtractedText: llm.TruncateRunes(text, c.cfg.MaxTextChars),
	}
	headers := map[string]string{}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}

	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.Endpoint, payload, headers, c.logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return entity.ExtractedFiscalData{}, ctxErr
		}
		classified := classify(status, raw, err)
		c.logger.Warn("fiscalapi.extract.failed",
			"file", filename,
			"status", status,
			"error", classified,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, classified
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("fiscalapi.extract.decode_error", "file", filename, "error", err, "raw_bytes", len(raw))
		return entity.ExtractedFiscalData{}, common.NewExtractionError("Resposta inválida do serviço de extração", fmt.Errorf("decode response: %w", err))
	}
	if !resp.Success {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = constants.MsgExtractionFailed
		}
		c.logger.Warn("fiscalapi.extract.unsuccessful", "file", filename, "message", msg)
		return entity.ExtractedFiscalData{}, common.NewExtractionError(msg, nil)
	}
	trimmed := strings.TrimSpace(string(resp.Data))
	if trimmed == "" || trimmed == "null" {
		return entity.ExtractedFiscalData{}, common.NewExtractionError("Resposta do serviço de extração sem dados", nil)
	}

	data, err := validate(resp.Data)
	if err != nil {
		c.logger.Warn("fiscalapi.extract.validation_failed", "file", filename, "error", err)
		return entity.ExtractedFiscalData{}, err
	}

	c.logger.Info("fiscalapi.extract.ok",
		"file", filename,
		"cnpj", data.CNPJ,
		"periodo", data.Periodo,
		"text_len", len(payload.ExtractedText),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func validate(raw json.RawMessage) (entity.ExtractedFiscalData, error) {
	if err := responseSchema.Validate(raw); err != nil {
		return entity.ExtractedFiscalData{}, common.NewValidationError("Dados extraídos em formato inválido", err)
	}
	var out entity.ExtractedFiscalData
	if err := json.Unmarshal(raw, &out); err != nil {
		return entity.ExtractedFiscalData{}, common.NewValidationError("Dados extraídos em formato inválido", err)
	}
	out.CNPJ = common.NormalizeCNPJ(out.CNPJ)
	out.Periodo = strings.TrimSpace(out.Periodo)
	out.Empresa = strings.TrimSpace(out.Empresa)

	v := common.NewValidator()
	v.Field("cnpj", out.CNPJ, common.Required, common.CNPJ)
	v.Field("periodo", out.Periodo, common.Required, common.Period)
	if !v.HasErrors() {
		return out, nil
	}

	first := v.Errors()[0]
	msg := constants.MsgInvalidCNPJ
	if first.Field == "periodo" {
		msg = constants.MsgInvalidPeriod
		if out.Periodo == "" {
			msg = constants.MsgMissingPeriod
		}
	}
	return entity.ExtractedFiscalData{}, common.ValidateAndReturnError(v, msg)
}

// classify maps a failed call onto the pipeline's error kinds using the
// transport status; the body's {error} text is kept as the message.
func classify(status int, raw []byte, cause error) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := strings.TrimSpace(body.Error)

	switch status {
	case http.StatusTooManyRequests:
		if msg == "" {
			msg = constants.MsgRateLimited
		}
		return common.NewRateLimitedError(msg)
	case http.StatusPaymentRequired:
		if msg == "" {
			msg = constants.MsgQuotaExhausted
		}
		return common.NewQuotaExhaustedError(msg)
	case 0:
		return common.NewExtractionError("Falha ao contatar o serviço de extração", cause)
	default:
		if msg == "" {
			msg = fmt.Sprintf("%s (HTTP %d)", constants.MsgExtractionFailed, status)
		}
		return common.NewExtractionError(msg, cause)
	}
}
