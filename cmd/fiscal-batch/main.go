package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/adonai404/empresas-imperial-sub001/internal/batch"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/export"
	"github.com/adonai404/empresas-imperial-sub001/internal/extract"
	"github.com/adonai404/empresas-imperial-sub001/internal/fiscalapi"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
	"github.com/adonai404/empresas-imperial-sub001/internal/pipeline"
	repo "github.com/adonai404/empresas-imperial-sub001/internal/repository"
	"github.com/adonai404/empresas-imperial-sub001/internal/services/company"
	"github.com/adonai404/empresas-imperial-sub001/internal/services/fiscal"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitImportErrors = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one import and returns the process exit code. Deferred
// cleanup runs before main exits.
func run(args []string) int {
	fs := flag.NewFlagSet("fiscal-batch", flag.ContinueOnError)
	var (
		inmem      = fs.Bool("inmem", false, "use in-memory SQLite database")
		dir        = fs.String("dir", "", "directory to import PDF files from")
		endpoint   = fs.String("endpoint", "", "fiscal extraction endpoint (overrides EXTRACTION_URL)")
		retryFrom  = fs.String("retry-from", "", "where rate-limited files restart: parse or extract (overrides BATCH_RETRY_FROM)")
		errorsCSV  = fs.String("errors-csv", "", "write the error report as CSV to this path")
		errorsXLSX = fs.String("errors-xlsx", "", "write the error report as XLSX to this path")
		out        = fs.String("out", "", "write all stored fiscal data as XLSX to this path")
		hidden     = fs.Bool("include-hidden", false, "also import hidden files under --dir")
	)
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	if *dir == "" && fs.NArg() == 0 {
		printError("Error: --dir or at least one file path is required\n")
		return exitFailure
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *endpoint != "" {
		cfg.Extraction.Endpoint = *endpoint
	}
	if *retryFrom != "" {
		cfg.Batch.RetryFrom = strings.ToLower(*retryFrom)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return exitFailure
	}
	from, err := pipeline.ParseRetryFrom(cfg.Batch.RetryFrom)
	if err != nil {
		printError("Error: %v\n", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.InitDatabase(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, *inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return exitFailure
	}
	defer db.Cleanup()

	companiesRepo := repo.NewCompanyRepository(db.Driver, logger)
	recordsRepo := repo.NewFiscalRecordRepository(db.Driver, logger)

	var files []ingest.File
	if *dir != "" {
		collected, stats, err := ingest.CollectDirectory(*dir, !*hidden, logger)
		if err != nil {
			logger.Error("failed to scan directory", "dir", *dir, "error", err)
			return exitFailure
		}
		logger.Info("directory scanned", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		files = append(files, collected...)
	}
	if fs.NArg() > 0 {
		listed, err := ingest.FromPaths(fs.Args())
		if err != nil {
			logger.Error("failed to read input files", "error", err)
			return exitFailure
		}
		files = append(files, listed...)
	}

	processor := pipeline.NewProcessor(
		logger,
		pipeline.NewParseStage(extract.NewPDFExtractor(extract.Config{MaxPages: cfg.Batch.MaxPages}, logger), logger),
		pipeline.NewExtractStage(fiscalapi.NewClient(fiscalapi.Config{
			Endpoint:     cfg.Extraction.Endpoint,
			APIKey:       cfg.Extraction.APIKey,
			Timeout:      cfg.Extraction.Timeout,
			MaxTextChars: cfg.Extraction.MaxTextChars,
		}, logger), logger),
		company.NewService(companiesRepo, logger),
		fiscal.NewService(recordsRepo, logger),
		pipeline.RetryPolicy{MaxRetries: cfg.Batch.RetryMax, BaseDelay: cfg.Batch.RetryBaseDelay, From: from},
	)

	orch := batch.NewOrchestrator(batch.Config{
		MaxFiles:     cfg.Batch.MaxFiles,
		MaxFileBytes: int64(cfg.Batch.MaxFileSizeMB) * 1024 * 1024,
		PacingDelay:  cfg.Batch.PacingDelay,
	}, processor, batch.LogNotifier{Logger: logger}, logger)

	summary, err := orch.Run(ctx, files)
	if err != nil {
		printError("Error: %s\n", common.UserMessage(err))
		return exitFailure
	}

	if *errorsCSV != "" {
		if err := writeCSVReport(*errorsCSV, summary); err != nil {
			logger.Error("failed to write CSV error report", "path", *errorsCSV, "error", err)
			return exitFailure
		}
	}
	if *errorsXLSX != "" {
		data, err := batch.ErrorReportXLSX(summary)
		if err == nil {
			err = os.WriteFile(*errorsXLSX, data, 0644)
		}
		if err != nil {
			logger.Error("failed to write XLSX error report", "path", *errorsXLSX, "error", err)
			return exitFailure
		}
	}
	if *out != "" {
		data, err := export.NewService(companiesRepo, recordsRepo, logger).ExportFiscalDataXLSX(ctx)
		if err == nil {
			err = os.WriteFile(*out, data, 0644)
		}
		if err != nil {
			logger.Error("failed to export fiscal data", "path", *out, "error", err)
			return exitFailure
		}
	}

	fmt.Printf("Import complete!\n")
	fmt.Printf("- Files: %d\n", summary.Total)
	fmt.Printf("- Imported: %d\n", summary.Success)
	fmt.Printf("- Errors: %d\n", summary.Errors)
	for _, r := range summary.Results {
		fmt.Printf("  [%s] %s: %s\n", r.Status, r.Filename, r.Message)
	}
	if summary.Errors > 0 {
		return exitImportErrors
	}
	return exitOK
}

func writeCSVReport(path string, s batch.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := batch.ErrorReportCSV(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
