package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 200
)

// ErrInvalidOverlap is returned when the overlap would stall the cursor.
var ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// breakMarkers are tried in priority order when looking for a natural boundary.
var breakMarkers = []string{"\n\n", "\n", ". ", " "}

// CharacterChunker splits text into windows of at most chunkSize characters,
// preferring to end each window on a paragraph, line, sentence or word break
// inside its final overlap characters. Sizes are counted in runes.
type CharacterChunker struct {
	chunkSize int
	overlap   int
}

// NewCharacterChunker validates the window parameters. Zero values fall back to defaults.
func NewCharacterChunker(chunkSize, overlap int) (*CharacterChunker, error) {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &CharacterChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the maximum window length in runes.
func (c *CharacterChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the overlap between neighbouring windows in runes.
func (c *CharacterChunker) Overlap() int { return c.overlap }

// Chunk returns the ordered windows of text. Text no longer than the chunk size
// comes back as a single chunk equal to the input.
func (c *CharacterChunker) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= c.chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, n/(c.chunkSize-c.overlap)+1)
	start := 0
	for start < n {
		end := min(start+c.chunkSize, n)
		if end < n {
			end = start + naturalBreak(runes[start:end], c.chunkSize-c.overlap)
		}
		chunks = append(chunks, string(runes[start:end]))
		start = max(start+c.chunkSize-c.overlap, end-c.overlap)
	}
	return chunks
}

// naturalBreak returns the window-relative end offset (in runes) just after the
// last occurrence of the highest priority marker that ends at or beyond
// minEnd, or the window length when no marker qualifies. Breaks before minEnd
// would leave text between the chunk end and the next window start uncovered.
func naturalBreak(window []rune, minEnd int) int {
	s := string(window)
	for _, marker := range breakMarkers {
		idx := strings.LastIndex(s, marker)
		if idx == -1 {
			continue
		}
		if end := utf8.RuneCountInString(s[:idx]) + utf8.RuneCountInString(marker); end >= minEnd {
			return end
		}
	}
	return len(window)
}
