package cmd

import (
	"context"
	"fmt"

	"chatcart/internal/config"
	"chatcart/internal/core"
	"chatcart/internal/llm"
	"chatcart/internal/logger"
	"chatcart/internal/observability"
	"chatcart/internal/services"
	"chatcart/internal/storage"
)

// app holds the wired service graph shared by every command.
type app struct {
	cfg       *config.Config
	store     storage.Store
	catalog   *services.ProductService
	sessions  *storage.SessionManager
	metrics   *observability.Metrics
	processor *core.Processor
}

func wireApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitLogger(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := storage.NewStore(ctx, cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("wire memory store: %w", err)
	}

	gen, err := llm.NewGenerator(ctx, cfg.Generation)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("wire generator: %w", err)
	}

	metrics := observability.NewMetrics("chatcart")
	catalog := services.NewProductService(cfg.Catalog, nil)
	sessions := storage.NewSessionManager(cfg.Session.InactivityTimeout)

	var fallback *llm.Fallback
	if gen != nil {
		fallback = llm.NewFallback(gen, cfg.Generation.Timeout, llm.Options{
			Temperature: cfg.Generation.Temperature,
			TopP:        cfg.Generation.TopP,
			MaxTokens:   cfg.Generation.MaxTokens,
		}, metrics)
	}

	logger.Info().
		Str("provider", cfg.Generation.Provider).
		Str("model", cfg.Generation.Model).
		Str("memory_backend", cfg.Memory.Backend).
		Int("catalog_sources", len(cfg.Catalog.SourceURLs)).
		Msg("Application wired")

	return &app{
		cfg:      cfg,
		store:    store,
		catalog:  catalog,
		sessions: sessions,
		metrics:  metrics,
		processor: core.NewProcessor(core.Config{
			Sessions:     sessions,
			Store:        store,
			Catalog:      catalog,
			Fallback:     fallback,
			Metrics:      metrics,
			DisplayLimit: cfg.Session.DisplayLimit,
		}),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close memory store")
	}
}
