// Package provider selects the model backend behind the extraction endpoint.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm/gemini"
	"github.com/adonai404/empresas-imperial-sub001/internal/llm/openai"
)

// New returns the extractor named by cfg.Provider and a func releasing it.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.FieldExtractor, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case "", "openai":
		c := openai.NewClient(cfg, logger)
		logger.Info("llm provider ready", "provider", "openai", "model", cfg.Model)
		return c, func() error { return nil }, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("llm provider ready", "provider", "gemini", "model", cfg.GeminiModel)
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}
