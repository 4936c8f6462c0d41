package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"ragqa/internal/domain"
)

// DefaultTopK is used when a query does not ask for a positive result count.
const DefaultTopK = 5

// Options carries the process-wide settings the service is built with.
type Options struct {
	// Collections is the closed set of collection names accepted by every operation.
	Collections []string
	// Extensions is the allow-list of file extensions ingested from folder archives.
	Extensions []string
	// EmbedConcurrency caps simultaneous embedding calls per document.
	EmbedConcurrency int
}

// RAGService ingests documents into collections and answers queries over them.
// It holds no mutable state and is safe for concurrent use when its
// collaborators are.
type RAGService struct {
	chunker          domain.Chunker
	embedder         domain.Embedder
	store            domain.VectorStore
	generator        domain.Generator
	collections      []string
	extensions       []string
	embedConcurrency int
	newID            func() string
}

// NewRAGService wires the collaborators together.
func NewRAGService(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, generator domain.Generator, opts Options) *RAGService {
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 1
	}
	return &RAGService{
		chunker:          chunker,
		embedder:         embedder,
		store:            store,
		generator:        generator,
		collections:      slices.Clone(opts.Collections),
		extensions:       slices.Clone(opts.Extensions),
		embedConcurrency: opts.EmbedConcurrency,
		newID:            uuid.NewString,
	}
}

// Collections returns the configured collection names.
func (s *RAGService) Collections() []string {
	return slices.Clone(s.collections)
}

// Targets returns every valid query target: the configured collections
// followed by the global pseudo-collection.
func (s *RAGService) Targets() []string {
	return append(s.Collections(), domain.GlobalCollection)
}

// EnsureCollections creates every configured collection in the vector store
// with the embedder's dimension.
func (s *RAGService) EnsureCollections(ctx context.Context) error {
	dim := s.embedder.Dimension()
	for _, name := range s.collections {
		if err := s.store.EnsureCollection(ctx, name, dim); err != nil {
			return fmt.Errorf("ensure collection %s: %w", name, err)
		}
	}
	return nil
}

func (s *RAGService) checkCollection(name string) error {
	if !slices.Contains(s.collections, name) {
		return fmt.Errorf("%w %q: must be one of %v", domain.ErrUnknownCollection, name, s.collections)
	}
	return nil
}
