package domain

import "context"

// GlobalCollection is the pseudo-collection that answers from the model's
// background knowledge without any retrieval.
const GlobalCollection = "global"

// Payload keys written by the ingestion pipeline on every stored chunk.
const (
	PayloadText        = "text"
	PayloadChunkIndex  = "chunk_index"
	PayloadTotalChunks = "total_chunks"
)

// Chunk is a contiguous piece of a document prepared for embedding.
type Chunk struct {
	ID      string
	Index   int
	Total   int
	Text    string
	Vector  []float64
	Payload map[string]any
}

// Point is the unit written to a vector store collection.
type Point struct {
	ID      string
	Vector  []float64
	Payload map[string]any
}

// Hit is a single nearest-neighbour match returned by a vector store.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// SearchResult is a query-time match tagged with its originating collection.
type SearchResult struct {
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Collection string         `json:"collection"`
	Metadata   map[string]any `json:"metadata"`
}

// Embedder converts free text into a fixed-length numeric vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits document text into ordered, possibly overlapping segments.
type Chunker interface {
	Chunk(text string) []string
}

// VectorStore persists vectors per named collection and supports cosine search.
type VectorStore interface {
	EnsureCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float64, limit int) ([]Hit, error)
}

// Generator produces a chat completion from a system instruction and a user message.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
