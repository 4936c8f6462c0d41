package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"ragqa/internal/domain"
)

const (
	noContextAnswer = "No relevant information found in the collections. Try querying 'global' knowledge."

	contextPrompt = "You are a helpful assistant that answers questions based on the context provided.\n\nContext:\n%s"
	generalPrompt = "You are a helpful assistant. Answer the following question using your general knowledge."
)

// QueryRequest selects what to ask and where. An empty Collection queries
// every configured collection; "global" skips retrieval.
type QueryRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// Answer is the generated reply. Sources is set only when retrieval ran.
type Answer struct {
	Answer  string                `json:"answer"`
	Sources []domain.SearchResult `json:"sources,omitempty"`
	// Retrieved holds the fused results used as context, even when empty.
	Retrieved []domain.SearchResult `json:"-"`
}

// Query retrieves context for req and asks the generator for an answer.
func (s *RAGService) Query(ctx context.Context, req QueryRequest) (Answer, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Answer{}, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
	}
	global := req.Collection == domain.GlobalCollection
	if req.Collection != "" && !global {
		if err := s.checkCollection(req.Collection); err != nil {
			return Answer{}, err
		}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}

	var results []domain.SearchResult
	switch {
	case global:
	case req.Collection != "":
		hits, err := s.store.Search(ctx, req.Collection, vector, topK)
		if err != nil {
			return Answer{}, fmt.Errorf("search %s: %w", req.Collection, err)
		}
		results = toResults(req.Collection, hits)
	default:
		results = s.fanOut(ctx, vector, topK)
	}
	results = Fuse(results, topK)

	contextText := BuildContext(results)
	if contextText == "" && !global {
		log.Debug().Str("collection", req.Collection).Msg("no context retrieved")
		return Answer{Answer: noContextAnswer, Retrieved: results}, nil
	}

	system := generalPrompt
	if contextText != "" {
		system = fmt.Sprintf(contextPrompt, contextText)
	}
	text, err := s.generator.Complete(ctx, system, req.Query)
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	ans := Answer{Answer: text, Retrieved: results}
	if !global {
		ans.Sources = results
	}
	return ans, nil
}

// fanOut searches every configured collection in order. A failing collection
// is logged and contributes nothing.
func (s *RAGService) fanOut(ctx context.Context, vector []float64, topK int) []domain.SearchResult {
	limit := fanOutLimit(topK, len(s.collections))
	var results []domain.SearchResult
	for _, name := range s.collections {
		hits, err := s.store.Search(ctx, name, vector, limit)
		if err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("error searching collection")
			continue
		}
		results = append(results, toResults(name, hits)...)
	}
	return results
}
