package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"ragqa/internal/chunker"
	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/embedding/hashing"
	embopenai "ragqa/internal/embedding/openai"
	llmopenai "ragqa/internal/llm/openai"
	"ragqa/internal/service"
	"ragqa/internal/vectorstore/memory"
	"ragqa/internal/vectorstore/pgvector"
	"ragqa/internal/vectorstore/qdrant"
)

// app is the assembled service plus whatever must be released on exit.
type app struct {
	svc     *service.RAGService
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// newApp builds every component from cfg and makes sure the configured
// collections exist in the vector store.
func newApp(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	a := &app{}

	ch, err := chunker.NewCharacterChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := a.newStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	gen, err := llmopenai.NewChatClient(llmopenai.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		Timeout:     secs(cfg.Generator.TimeoutSecs),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("generator init failed: %w", err)
	}

	a.svc = service.NewRAGService(ch, emb, store, gen, service.Options{
		Collections:      cfg.Collections,
		Extensions:       cfg.Ingest.Extensions,
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
	})
	if err := a.svc.EnsureCollections(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Debug().
		Str("embedder", emb.Name()).
		Int("dimension", emb.Dimension()).
		Str("store", cfg.VectorStore.Type).
		Strs("collections", cfg.Collections).
		Msg("service ready")
	return a, nil
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           secs(cfg.OpenAI.TimeoutSecs),
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func (a *app) newStore(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:     cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: secs(cfg.Qdrant.TimeoutSecs),
		}), nil
	case "pgvector":
		if cfg.PGVector == nil {
			return nil, fmt.Errorf("pgvector config missing")
		}
		dsn := os.Getenv(cfg.PGVector.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("pgvector: environment variable %s is not set", cfg.PGVector.DSNEnv)
		}
		st, err := pgvector.Open(dsn, cfg.PGVector.Table)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
