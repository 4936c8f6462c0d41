package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"slack", "docs", "codebase"}, cfg.Collections)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Generator.Model)
	require.NotNil(t, cfg.Generator.Temperature)
	assert.InDelta(t, 0.7, *cfg.Generator.Temperature, 1e-9)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, DefaultExtensions, cfg.Ingest.Extensions)
	assert.Equal(t, 4, cfg.Ingest.EmbedConcurrency)
}

func TestParse_OverridesAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
collections: [wiki, tickets]
embedder:
  type: hashing
chunker:
  chunk_size: 500
  chunk_overlap: 50
vector_store:
  type: pgvector
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"wiki", "tickets"}, cfg.Collections)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.Nil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, 500, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.ChunkOverlap)
	require.NotNil(t, cfg.VectorStore.PGVector)
	assert.Equal(t, "DATABASE_URL", cfg.VectorStore.PGVector.DSNEnv)
	assert.Equal(t, "ragqa_chunks", cfg.VectorStore.PGVector.Table)
}

func TestParse_ZeroTemperatureKept(t *testing.T) {
	cfg, err := Parse([]byte("generator:\n  temperature: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Generator.Temperature)
	assert.Zero(t, *cfg.Generator.Temperature)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"global is reserved":     "collections: [docs, global]",
		"duplicate collection":   "collections: [docs, docs]",
		"overlap not below size": "chunker: {chunk_size: 100, chunk_overlap: 100}",
		"negative dimension":     "embedder: {type: hashing, dimension: -3}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("collections: [unterminated"))
	assert.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Collections = []string{"alpha"}
	require.NoError(t, Save(path, cfg))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
