// Package provider builds the embedding and generation backends selected in
// configuration. Handles are created once at process start and closed on
// shutdown.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/ai/gemini"
	"github.com/cuongbtq/hr-rag/internal/ai/openai"
	"github.com/cuongbtq/hr-rag/internal/config"
)

// Backends holds the process-wide AI handles.
type Backends struct {
	Embedder  ai.Embedder
	Generator ai.Generator

	closers []io.Closer
	logger  *slog.Logger
}

// New builds both backends. The embedder is always wrapped with the
// dimension guard so no vector of the wrong length reaches storage.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{logger: logger}

	embedder, closer, err := newEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	b.closers = append(b.closers, closer)
	b.Embedder = ai.WithDimensionGuard(embedder, cfg.Embedding.Dimension)

	generator, closer, err := newGenerator(ctx, cfg.Generation, logger)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	b.closers = append(b.closers, closer)
	b.Generator = generator

	logger.Info("AI backends initialized",
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("embedding_model", cfg.Embedding.Model),
		slog.Int("dimension", cfg.Embedding.Dimension),
		slog.String("generation_provider", cfg.Generation.Provider),
		slog.String("generation_model", cfg.Generation.Model),
	)
	return b, nil
}

func newEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *slog.Logger) (ai.Embedder, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:         cfg.APIKey,
			EmbeddingModel: cfg.Model,
			Dimension:      cfg.Dimension,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderOpenAI:
		c, err := openai.New(openai.Config{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			EmbeddingModel: cfg.Model,
			Dimension:      cfg.Dimension,
			Timeout:        cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

func newGenerator(ctx context.Context, cfg config.GenerationConfig, logger *slog.Logger) (ai.Generator, io.Closer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:          cfg.APIKey,
			GenerationModel: cfg.Model,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case config.ProviderOpenAI:
		c, err := openai.New(openai.Config{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			ChatModel: cfg.Model,
			Timeout:   cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// Close releases every backend handle.
func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	b.logger.Info("AI backends closed")
	return nil
}
