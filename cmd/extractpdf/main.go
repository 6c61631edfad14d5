package main

import (
	"bytes"
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/extract"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm/provider"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 3 when runs on the same file diverge.
func run() int {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	times := flag.Int("times", 3, "number of extraction runs on the same file")
	textOnly := flag.Bool("text-only", false, "stop after text extraction")
	flag.Parse()

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extractpdf [--times N] [--text-only] <file.pdf>")
		return 2
	}
	path := flag.Arg(0)
	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		logger.Error("open file", "path", path, "error", err)
		return 1
	}
	tx := extract.NewPDFExtractor(extract.Config{MaxPages: cfg.Batch.MaxPages}, logger)
	res, err := tx.ExtractText(ctx, filepath.Base(path), f)
	_ = f.Close()
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err)
		return 1
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"total_pages", res.TotalPages,
		"chars", len([]rune(res.Text)),
		"duration_ms", res.Duration.Milliseconds(),
		"warnings", res.Warnings,
	)
	if *textOnly {
		return 0
	}

	extractor, closeExtractor, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("llm provider", "error", err)
		return 1
	}
	defer func() { _ = closeExtractor() }()

	req := llm.ExtractRequest{
		Filename: filepath.Base(path),
		Text:     llm.TruncateRunes(res.Text, cfg.Extraction.MaxTextChars),
	}
	var first []byte
	identical := true
	for i := 1; i <= *times; i++ {
		start := time.Now()
		data, raw, err := extractor.ExtractFields(ctx, req)
		if err != nil {
			logger.Error("pipeline.run.error", "iter", i, "error", err, "rate_limited", common.IsRateLimited(err), "duration_ms", time.Since(start).Milliseconds())
			return 1
		}
		logger.Info("pipeline.run.ok",
			"iter", i,
			"cnpj", data.CNPJ,
			"periodo", data.Periodo,
			"empresa", data.Empresa,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if first == nil {
			first = raw
			continue
		}
		if !bytes.Equal(first, raw) {
			identical = false
			logger.Warn("pipeline.run.diverged", "iter", i, "first", string(first), "got", string(raw))
		}
	}
	logger.Info("idempotence check", "runs", *times, "identical", identical)
	if !identical {
		return 3
	}
	return 0
}
