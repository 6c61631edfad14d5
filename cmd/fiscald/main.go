package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adonai404/empresas-imperial-sub001/internal/batch"
	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/export"
	"github.com/adonai404/empresas-imperial-sub001/internal/extract"
	"github.com/adonai404/empresas-imperial-sub001/internal/fiscalapi"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm/provider"
	"github.com/adonai404/empresas-imperial-sub001/internal/pipeline"
	repo "github.com/adonai404/empresas-imperial-sub001/internal/repository"
	"github.com/adonai404/empresas-imperial-sub001/internal/server"
	"github.com/adonai404/empresas-imperial-sub001/internal/services/company"
	"github.com/adonai404/empresas-imperial-sub001/internal/services/fiscal"
)

func main() {
	os.Exit(run())
}

// run serves until interrupted and returns the process exit code.
func run() int {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.ValidateServer(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}
	from, err := pipeline.ParseRetryFrom(cfg.Batch.RetryFrom)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 2
	}
	inmem := cfg.Database.DSN == ""
	if inmem {
		logger.Warn("DB_URL not set, using in-memory SQLite")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.InitDatabase(ctx, repo.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, inmem, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		return 1
	}
	defer db.Cleanup()

	ping := server.DBPinger(db.Driver, logger, 3*time.Second)
	if err := ping(ctx); err != nil {
		logger.Error("DB health failed", "error", err)
		return 1
	}
	logger.Info("DB health OK")

	extractor, closeExtractor, err := provider.New(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to initialize llm provider", "error", err)
		return 1
	}
	defer func() {
		if err := closeExtractor(); err != nil {
			logger.Error("closing llm provider", "error", err)
		}
	}()

	companiesRepo := repo.NewCompanyRepository(db.Driver, logger)
	recordsRepo := repo.NewFiscalRecordRepository(db.Driver, logger)
	companySvc := company.NewService(companiesRepo, logger)
	fiscalSvc := fiscal.NewService(recordsRepo, logger)

	processor := pipeline.NewProcessor(
		logger,
		pipeline.NewParseStage(extract.NewPDFExtractor(extract.Config{MaxPages: cfg.Batch.MaxPages}, logger), logger),
		pipeline.NewExtractStage(fiscalapi.NewClient(fiscalapi.Config{
			Endpoint:     cfg.Extraction.Endpoint,
			APIKey:       cfg.Extraction.APIKey,
			Timeout:      cfg.Extraction.Timeout,
			MaxTextChars: cfg.Extraction.MaxTextChars,
		}, logger), logger),
		companySvc,
		fiscalSvc,
		pipeline.RetryPolicy{MaxRetries: cfg.Batch.RetryMax, BaseDelay: cfg.Batch.RetryBaseDelay, From: from},
	)
	orch := batch.NewOrchestrator(batch.Config{
		MaxFiles:     cfg.Batch.MaxFiles,
		MaxFileBytes: int64(cfg.Batch.MaxFileSizeMB) * 1024 * 1024,
		PacingDelay:  cfg.Batch.PacingDelay,
	}, processor, batch.LogNotifier{Logger: logger}, logger)

	router := server.NewRouter(server.Deps{
		Imports:   orch,
		Companies: companySvc,
		Fiscal:    fiscalSvc,
		Export:    export.NewService(companiesRepo, recordsRepo, logger),
		Extractor: extractor,
		Ping:      ping,
		Logger:    logger,
	}, server.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: int64(cfg.Batch.MaxFileSizeMB) * 1024 * 1024,
	})
	httpSrv := server.NewServer(cfg.Server.HTTPAddr, router, logger)

	grpcSrv, hs := server.NewHealthGRPCServer()
	lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.Server.GRPCHealthAddr, "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpSrv.Start)
	g.Go(func() error {
		logger.Info("grpc health serving", "addr", cfg.Server.GRPCHealthAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		server.WatchHealth(gctx, hs, ping, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		orch.Reset()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return 1
	}
	logger.Info("stopped")
	return 0
}
