package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/service"
	"ragqa/internal/summarizer"
)

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"team=infra", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"team": "infra", "note": "a=b"}, meta)

	_, err = parseMeta([]string{"novalue"})
	assert.Error(t, err)

	meta, err = parseMeta(nil)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestNewApp_MemoryStoreAndHashingEmbedder(t *testing.T) {
	t.Setenv("RAGQA_TEST_KEY", "sk-test")
	cfg, err := config.Parse([]byte(`
collections: [notes]
embedder:
  type: hashing
  dimension: 32
generator:
  api_key_env: RAGQA_TEST_KEY
vector_store:
  type: memory
`))
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.svc.IngestText(context.Background(), service.IngestRequest{Collection: "notes", Text: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksProcessed)
	assert.Equal(t, []string{"notes", domain.GlobalCollection}, a.svc.Targets())
}

func TestNewApp_UnknownStore(t *testing.T) {
	cfg, err := config.Parse([]byte("embedder:\n  type: hashing\nvector_store:\n  type: cassandra\n"))
	require.NoError(t, err)
	_, err = newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown vector store")
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printAnswer(cmd, service.Answer{
		Answer: "Use the staging cluster.",
		Sources: []domain.SearchResult{{
			Text:       "Deploys go to staging first. Then prod.",
			Score:      0.82,
			Collection: "docs",
			Metadata:   map[string]any{"filename": "deploy.md"},
		}},
	}, summarizer.NewFrequencySummarizer())

	out := buf.String()
	assert.Contains(t, out, "Use the staging cluster.")
	assert.Contains(t, out, "[1] docs (0.820) deploy.md")
	assert.Contains(t, out, "Deploys go to staging first.")
}
