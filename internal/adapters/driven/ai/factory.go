// Package ai provides factory functions wiring the configured driven
// adapters: chunk store, embedding provider, LLM and PDF extractor.
package ai

import (
	"context"
	"fmt"

	configfile "github.com/parchlab/ragpipe/internal/adapters/driven/config/file"
	localembed "github.com/parchlab/ragpipe/internal/adapters/driven/embedding/local"
	openaiembed "github.com/parchlab/ragpipe/internal/adapters/driven/embedding/openai"
	"github.com/parchlab/ragpipe/internal/adapters/driven/extract/mineru"
	openaillm "github.com/parchlab/ragpipe/internal/adapters/driven/llm/openai"
	"github.com/parchlab/ragpipe/internal/adapters/driven/storage/postgres"
	"github.com/parchlab/ragpipe/internal/adapters/driven/storage/sqlite"
	"github.com/parchlab/ragpipe/internal/core/domain"
	"github.com/parchlab/ragpipe/internal/core/ports/driven"
	"github.com/parchlab/ragpipe/internal/logger"
)

// InitResult holds the wired driven adapters. LLMService is nil when no
// API key is available; ingestion and retrieval still work, only answer
// generation is disabled.
type InitResult struct {
	Store     driven.ChunkStore
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Extractor driven.Extractor
	Warnings  []string
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Embedding != nil {
		r.Embedding.Close()
	}
	if r.LLM != nil {
		r.LLM.Close()
	}
	if r.Store != nil {
		r.Store.Close()
	}
}

// Init builds every driven adapter from cfg and verifies that the
// embedding provider and the chunk store agree on vector dimensions.
// Any inconsistency is a configuration error and aborts startup.
func Init(ctx context.Context, cfg configfile.Config) (*InitResult, error) {
	res := &InitResult{}

	embedder, err := createEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	res.Embedding = embedder

	store, err := createStore(ctx, cfg.Storage, embedder.Dimensions())
	if err != nil {
		res.Close()
		return nil, err
	}
	res.Store = store

	if store.Dimensions() != embedder.Dimensions() {
		res.Close()
		return nil, fmt.Errorf("%w: store dimensions %d do not match embedding dimensions %d",
			domain.ErrConfiguration, store.Dimensions(), embedder.Dimensions())
	}

	llm, warning, err := createLLMService(cfg.LLM)
	if err != nil {
		res.Close()
		return nil, err
	}
	res.LLM = llm
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
	}

	res.Extractor = mineru.New(mineru.Config{
		Command: cfg.Extract.Command,
		Timeout: cfg.Extract.Timeout(),
	})

	logger.Debug("adapters ready: store=%s embedder=%s dims=%d",
		cfg.Storage.Backend, embedder.ModelName(), embedder.Dimensions())
	return res, nil
}

// createEmbeddingService builds the configured embedding provider.
func createEmbeddingService(cfg configfile.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case configfile.ProviderLocal:
		return localembed.NewEmbeddingService(localembed.Config{
			Dimensions: cfg.Dimensions,
		}), nil

	case configfile.ProviderOpenAI:
		key := cfg.APIKey()
		if key == "" {
			return nil, fmt.Errorf("%w: embedding provider %q needs %s set",
				domain.ErrConfiguration, cfg.Provider, cfg.APIKeyEnv)
		}
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            key,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           cfg.Timeout(),
			RequestsPerSecond: cfg.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q",
			domain.ErrConfiguration, cfg.Provider)
	}
}

// createStore builds the configured chunk store backend.
func createStore(ctx context.Context, cfg configfile.StorageConfig, dimensions int) (driven.ChunkStore, error) {
	switch cfg.Backend {
	case configfile.BackendPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL, dimensions)

	case configfile.BackendSQLite:
		return sqlite.NewStore(cfg.SQLitePath, dimensions)

	default:
		return nil, fmt.Errorf("%w: unsupported storage backend %q",
			domain.ErrConfiguration, cfg.Backend)
	}
}

// createLLMService builds the generation client, or returns nil with a
// warning when no API key is available.
func createLLMService(cfg configfile.LLMConfig) (driven.LLMService, string, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, fmt.Sprintf("no %s set; query answering disabled", cfg.APIKeyEnv), nil
	}

	svc, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:      key,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		Timeout:     cfg.Timeout(),
	})
	if err != nil {
		return nil, "", err
	}
	return svc, "", nil
}
