package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/extract"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
)

// FieldExtractor turns document text into structured fiscal data.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, filename, text string) (entity.ExtractedFiscalData, error)
}

// CompanyResolver returns the id of the company owning a CNPJ.
type CompanyResolver interface {
	ResolveCompany(ctx context.Context, cnpj, name string) (uuid.UUID, error)
}

// RecordSaver stores the fiscal data of one company and period.
type RecordSaver interface {
	SaveFiscalRecord(ctx context.Context, companyID uuid.UUID, data entity.ExtractedFiscalData) error
}

// ParseStage reads a file and returns its text; blank text is an error.
type ParseStage struct {
	TextExtractor extract.TextExtractor
	Logger        *slog.Logger
}

func NewParseStage(tx extract.TextExtractor, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{TextExtractor: tx, Logger: logger}
}

func (s *ParseStage) Run(ctx context.Context, f ingest.File, attempt int) (string, error) {
	rc, err := f.Open()
	if err != nil {
		s.Logger.Error("pipeline.parse.open_failed", "file", f.Name(), "attempt", attempt, "error", err)
		return "", common.NewParseError(constants.MsgFileUnreadable, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			s.Logger.Warn("pipeline.parse.close_failed", "file", f.Name(), "error", err)
		}
	}()

	res, err := s.TextExtractor.ExtractText(ctx, f.Name(), rc)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Text) == "" {
		s.Logger.Warn("pipeline.parse.empty_text", "file", f.Name(), "pages", res.Pages, "method", res.Method)
		return "", common.NewParseError(constants.MsgEmptyPDFText, nil)
	}
	s.Logger.Info("pipeline.parse.ok",
		"file", f.Name(),
		"attempt", attempt,
		"method", res.Method,
		"pages", res.Pages,
		"total_pages", res.TotalPages,
		"text_len", len(res.Text),
		"warnings", res.Warnings,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res.Text, nil
}

// ExtractStage calls the field extractor once.
type ExtractStage struct {
	Extractor FieldExtractor
	Logger    *slog.Logger
}

func NewExtractStage(fe FieldExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: fe, Logger: logger}
}

func (s *ExtractStage) Run(ctx context.Context, filename, text string, attempt int) (entity.ExtractedFiscalData, error) {
	start := time.Now()
	data, err := s.Extractor.ExtractFields(ctx, filename, text)
	if err != nil {
		s.Logger.Warn("pipeline.extract.failed",
			"file", filename,
			"attempt", attempt,
			"rate_limited", common.IsRateLimited(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFiscalData{}, err
	}
	s.Logger.Info("pipeline.extract.ok",
		"file", filename,
		"attempt", attempt,
		"cnpj", data.CNPJ,
		"periodo", data.Periodo,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}
