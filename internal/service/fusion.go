package service

import (
	"fmt"
	"sort"
	"strings"

	"ragqa/internal/domain"
)

// Fuse orders results by descending score and keeps the best topK. Equal
// scores keep their input order.
func Fuse(results []domain.SearchResult, topK int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// BuildContext renders results as "[collection] text" blocks separated by a
// blank line.
func BuildContext(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[%s] %s", r.Collection, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// fanOutLimit is the per-collection search size when querying n collections.
func fanOutLimit(topK, n int) int {
	if n <= 0 {
		return topK
	}
	return max(1, topK/n)
}

// toResults tags store hits with their collection. The chunk text moves out
// of the payload; everything else becomes metadata.
func toResults(collection string, hits []domain.Hit) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		meta := make(map[string]any, len(h.Payload))
		var text string
		for k, v := range h.Payload {
			if k == domain.PayloadText {
				text, _ = v.(string)
				continue
			}
			meta[k] = v
		}
		out = append(out, domain.SearchResult{
			Text:       text,
			Score:      h.Score,
			Collection: collection,
			Metadata:   meta,
		})
	}
	return out
}
