package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/adonai404/empresas-imperial-sub001/constants"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
)

const (
	MethodPDFText   = "pdf-text"
	MethodPDFStream = "pdf-stream"
)

type Config struct {
	MaxPages int   // pages read per document; defaults to constants.MaxPDFPages
	MaxBytes int64 // 0 = no limit
}

// PDFExtractor reads text-based PDFs. ledongthuc/pdf is tried first; when it
// cannot open the file, or yields no text, pdfcpu content streams are parsed.
type PDFExtractor struct {
	cfg    Config
	logger *slog.Logger
}

func NewPDFExtractor(cfg Config, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = constants.MaxPDFPages
	}
	return &PDFExtractor{cfg: cfg, logger: logger}
}

// ExtractText reads r fully and returns the text of at most MaxPages pages,
// one newline after each page. A document neither engine can open yields a
// PARSE_ERROR. Blank text is returned as-is; callers decide if it is usable.
func (e *PDFExtractor) ExtractText(ctx context.Context, name string, r io.Reader) (TextExtractionResult, error) {
	start := time.Now()

	if e.cfg.MaxBytes > 0 {
		r = io.LimitReader(r, e.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		e.logger.Error("extract.pdf.read_failed", "file", name, "error", err)
		return TextExtractionResult{}, common.NewParseError(constants.MsgInvalidPDF, fmt.Errorf("read %s: %w", name, err))
	}
	if e.cfg.MaxBytes > 0 && int64(len(data)) > e.cfg.MaxBytes {
		return TextExtractionResult{}, common.NewParseError(constants.MsgInvalidPDF, fmt.Errorf("%s exceeds %d bytes", name, e.cfg.MaxBytes))
	}

	res, primaryErr := e.readPages(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return TextExtractionResult{}, ctxErr
	}
	if primaryErr == nil && strings.TrimSpace(res.Text) != "" {
		res.Duration = time.Since(start)
		e.logger.Info("extract.pdf.ok",
			"file", name,
			"method", res.Method,
			"pages", res.Pages,
			"total_pages", res.TotalPages,
			"chars", len(res.Text),
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, nil
	}

	if primaryErr != nil {
		e.logger.Warn("extract.pdf.primary_failed", "file", name, "error", primaryErr)
	} else {
		e.logger.Warn("extract.pdf.primary_empty", "file", name, "pages", res.Pages)
	}

	fallback, streamErr := e.readContentStreams(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return TextExtractionResult{}, ctxErr
	}
	switch {
	case streamErr == nil:
		if primaryErr != nil {
			fallback.Warnings = append(fallback.Warnings, "pdf-text: "+primaryErr.Error())
		}
		if strings.TrimSpace(fallback.Text) == "" && primaryErr == nil {
			// both engines opened the file; keep the primary (blank) result
			fallback = res
		}
		fallback.Duration = time.Since(start)
		e.logger.Info("extract.pdf.ok",
			"file", name,
			"method", fallback.Method,
			"pages", fallback.Pages,
			"total_pages", fallback.TotalPages,
			"chars", len(fallback.Text),
			"elapsed_ms", fallback.Duration.Milliseconds(),
		)
		return fallback, nil
	case primaryErr == nil:
		res.Warnings = append(res.Warnings, "pdf-stream: "+streamErr.Error())
		res.Duration = time.Since(start)
		return res, nil
	default:
		e.logger.Error("extract.pdf.failed",
			"file", name,
			"error", errors.Join(primaryErr, streamErr),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return TextExtractionResult{}, common.NewParseError(constants.MsgInvalidPDF, errors.Join(primaryErr, streamErr))
	}
}

// readPages extracts page text with ledongthuc/pdf. The library panics on
// some malformed inputs, so panics are turned into errors.
func (e *PDFExtractor) readPages(ctx context.Context, data []byte) (res TextExtractionResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res = TextExtractionResult{}
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return TextExtractionResult{}, fmt.Errorf("open pdf: %w", err)
	}

	res.Method = MethodPDFText
	res.TotalPages = reader.NumPage()
	limit := min(res.TotalPages, e.cfg.MaxPages)

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return TextExtractionResult{}, err
		}
		res.Pages++
		page := reader.Page(i)
		if page.V.IsNull() {
			b.WriteByte('\n')
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, perr))
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	res.Text = b.String()
	return res, nil
}
