package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Client calls chat/completions in JSON mode and checks the reply against
// the fiscal schema.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float32
	http        *http.Client
	logger      *slog.Logger
}

// NewClient builds a client from the LLM section of the service config.
// Empty fields fall back to the public endpoint and gpt-4o-mini.
func NewClient(cfg common.LLMConfig, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:    strings.TrimRight(base, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// ExtractFields implements llm.FieldExtractor using chat/completions in JSON mode.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFiscalData, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.model,
		"temp", c.temperature,
		"file", req.Filename,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"model":           c.model,
		"temperature":     c.temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req.Filename, req.Text)},
		},
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	raw, status, httpErr := llm.SendJSON(ctx, c.http, c.endpoint, body, headers, c.logger)
	if httpErr != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, raw, classifyStatus(status, raw, httpErr)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, raw, common.NewExtractionError(constants.MsgExtractionFailed, fmt.Errorf("decode openai response: %w", err))
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, raw, common.NewExtractionError(constants.MsgExtractionFailed, fmt.Errorf("no choices in openai response"))
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	out, cleaned, err := llm.DecodeFields(content, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.invalid_output",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, cleaned, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"cnpj", out.CNPJ,
		"periodo", out.Periodo,
		"empresa", out.Empresa,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// classifyStatus maps an upstream failure onto the error kinds the
// extraction endpoint reports. OpenAI signals an exhausted balance with 429
// and code "insufficient_quota", which is not worth retrying.
func classifyStatus(status int, raw []byte, cause error) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &apiErr)

	switch {
	case status == http.StatusPaymentRequired,
		status == http.StatusTooManyRequests && (apiErr.Error.Code == "insufficient_quota" || apiErr.Error.Type == "insufficient_quota"):
		return common.NewQuotaExhaustedError(constants.MsgQuotaExhausted)
	case status == http.StatusTooManyRequests:
		return common.NewRateLimitedError(constants.MsgRateLimited)
	case status == 0:
		return common.NewExtractionError(constants.MsgExtractionFailed, cause)
	default:
		msg := constants.MsgExtractionFailed
		if apiErr.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, apiErr.Error.Message)
		}
		return common.NewExtractionError(msg, cause)
	}
}
