package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ragqa/internal/domain"
)

// IngestRequest describes a single document: either an uploaded file or literal text.
type IngestRequest struct {
	Collection  string
	Text        string
	File        io.Reader
	Filename    string
	Metadata    map[string]any
	// DocumentKey, when set, derives chunk ids from the key and chunk index so
	// re-ingesting the same document overwrites its chunks instead of adding
	// new ones. Chunks past the new total are left in place.
	DocumentKey string
}

// IngestResult reports how many chunks were stored.
type IngestResult struct {
	ChunksProcessed int `json:"chunks_processed"`
}

// IngestText chunks, embeds and stores one document. When File is set it takes
// precedence over Text and its name is recorded as "filename" metadata.
func (s *RAGService) IngestText(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if err := s.checkCollection(req.Collection); err != nil {
		return IngestResult{}, err
	}

	var (
		text     string
		fileMeta map[string]any
	)
	switch {
	case req.File != nil:
		data, err := io.ReadAll(req.File)
		if err != nil {
			return IngestResult{}, fmt.Errorf("read upload: %w", err)
		}
		text = strings.ToValidUTF8(string(data), "")
		fileMeta = map[string]any{"filename": req.Filename}
	case req.Text != "":
		text = req.Text
	default:
		return IngestResult{}, fmt.Errorf("%w: either file or text must be provided", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return IngestResult{}, fmt.Errorf("%w: document is empty", domain.ErrInvalidInput)
	}

	n, err := s.ingestDocument(ctx, req.Collection, req.DocumentKey, text, req.Metadata, fileMeta)
	if err != nil {
		return IngestResult{}, err
	}
	log.Info().Str("collection", req.Collection).Str("filename", req.Filename).Int("chunks", n).Msg("document ingested")
	return IngestResult{ChunksProcessed: n}, nil
}

// ingestDocument runs chunk -> embed -> upsert for one text. Metadata layers
// are merged in order beneath the chunk-level fields. Without a key every
// chunk gets a fresh id.
func (s *RAGService) ingestDocument(ctx context.Context, collection, key, text string, layers ...map[string]any) (int, error) {
	pieces := s.chunker.Chunk(text)

	vectors := make([][]float64, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			v, err := s.embedder.Embed(gctx, piece)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	base := MergePayload(layers...)
	points := make([]domain.Point, len(pieces))
	for i, piece := range pieces {
		id := s.newID()
		if key != "" {
			id = chunkID(collection, key, i)
		}
		chunk := domain.Chunk{
			ID:     id,
			Index:  i,
			Total:  len(pieces),
			Text:   piece,
			Vector: vectors[i],
		}
		chunk.Payload = MergePayload(base, ChunkFields(chunk))
		points[i] = domain.Point{ID: chunk.ID, Vector: chunk.Vector, Payload: chunk.Payload}
	}
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.store.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return len(points), nil
}

// chunkID is a name-based UUID so stores that require UUID ids accept it.
func chunkID(collection, key string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+key+"#"+strconv.Itoa(index))).String()
}
