package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_KeepsFrequentSentencesInOrder(t *testing.T) {
	text := "Qdrant stores vectors. The weather was nice. Vectors in Qdrant are searched by cosine. Lunch is at noon."
	s := NewFrequencySummarizer()

	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Qdrant stores vectors. Vectors in Qdrant are searched by cosine.", out)
}

func TestSummarize_NoPunctuation(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  just a fragment  ", 2)
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", out)
}

func TestSummarize_FewerSentencesThanLimit(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("One sentence only.", 5)
	require.NoError(t, err)
	assert.Equal(t, "One sentence only.", out)
}

func TestSummarize_StopwordsCarryNoWeight(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("It is. The end.", 1)
	require.NoError(t, err)
	assert.Equal(t, "The end.", out)

	out, err = NewFrequencySummarizer().Summarize("It is. It was.", 1)
	require.NoError(t, err)
	assert.Equal(t, "It is.", out)
}
