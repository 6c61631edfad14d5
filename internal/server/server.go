// Package server exposes batch imports, the fiscal extraction endpoint and
// read-only listings over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/batch"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/ingest"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
)

// ImportRunner is the batch surface the import handlers drive.
type ImportRunner interface {
	Validate(files []ingest.File) error
	Start(ctx context.Context, files []ingest.File) error
	Snapshot() batch.RunState
	Reset()
}

type CompanyReader interface {
	ListCompanies(ctx context.Context) ([]*entity.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error)
}

type FiscalReader interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*entity.FiscalRecord, error)
}

type WorkbookExporter interface {
	ExportFiscalDataXLSX(ctx context.Context) ([]byte, error)
}

// Deps are the collaborators behind the routes. A nil Extractor leaves the
// extraction endpoint unmounted; a nil Ping reports healthy.
type Deps struct {
	Imports   ImportRunner
	Companies CompanyReader
	Fiscal    FiscalReader
	Export    WorkbookExporter
	Extractor llm.FieldExtractor
	Ping      Pinger
	Logger    *slog.Logger
}

type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

type handlers struct {
	Deps
	opts Options
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(deps Deps, opts Options) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	h := &handlers{Deps: deps, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		if deps.Extractor != nil {
			r.Post("/extract-fiscal-data", h.extractFiscalData)
		}
		if deps.Imports != nil {
			r.Route("/imports", func(r chi.Router) {
				r.Post("/", h.startImport)
				r.Get("/", h.importState)
				r.Post("/reset", h.resetImport)
				r.Get("/errors.csv", h.errorsCSV)
				r.Get("/errors.xlsx", h.errorsXLSX)
			})
		}
		if deps.Companies != nil {
			r.Get("/companies", h.listCompanies)
			r.Get("/companies/{id}/fiscal-data", h.companyFiscalData)
		}
		if deps.Export != nil {
			r.Get("/export/fiscal-data.xlsx", h.exportFiscalData)
		}
	})
	return r
}

// Server wraps http.Server with logged start and shutdown.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
