package service

import (
	"maps"
	"path"
	"strings"

	"ragqa/internal/domain"
)

// MergePayload flattens layers into one map, left to right; later layers win
// on key collisions. Nil layers are skipped.
func MergePayload(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		maps.Copy(out, layer)
	}
	return out
}

// ChunkFields are the chunk-level payload entries. They form the top layer of
// every stored payload.
func ChunkFields(c domain.Chunk) map[string]any {
	return map[string]any{
		domain.PayloadText:        c.Text,
		domain.PayloadChunkIndex:  c.Index,
		domain.PayloadTotalChunks: c.Total,
	}
}

// FileMetadata derives the per-file payload layer from a slash-separated path
// relative to the archive root.
func FileMetadata(rel string) map[string]any {
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}
	return map[string]any{
		"filename":     path.Base(rel),
		"path":         rel,
		"folder_path":  folder,
		"file_type":    strings.ToLower(strings.TrimPrefix(path.Ext(rel), ".")),
		"folder_depth": strings.Count(rel, "/"),
	}
}
