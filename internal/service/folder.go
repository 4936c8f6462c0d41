package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"ragqa/internal/archive"
	"ragqa/internal/domain"
)

// FileStatus classifies what happened to one file of a folder archive.
type FileStatus int

const (
	FileProcessed FileStatus = iota
	FileSkipped
	FileFailed
)

func (s FileStatus) String() string {
	switch s {
	case FileProcessed:
		return "processed"
	case FileSkipped:
		return "skipped"
	case FileFailed:
		return "failed"
	}
	return fmt.Sprintf("FileStatus(%d)", int(s))
}

// FileOutcome is the per-file result of folder ingestion.
type FileOutcome struct {
	Path   string
	Status FileStatus
	Chunks int
	Err    error
}

// FolderResult aggregates the outcomes of a folder ingestion.
type FolderResult struct {
	FilesProcessed     int         `json:"files_processed"`
	TotalChunks        int         `json:"total_chunks"`
	FailedFiles        int         `json:"failed_files"`
	SkippedBinaryFiles int         `json:"skipped_binary_files"`
	FolderStructure    *FolderNode `json:"folder_structure"`
}

// Summarize folds per-file outcomes into counters. FolderStructure is left nil.
func Summarize(outcomes []FileOutcome) FolderResult {
	var res FolderResult
	for _, o := range outcomes {
		switch o.Status {
		case FileProcessed:
			res.FilesProcessed++
			res.TotalChunks += o.Chunks
		case FileSkipped:
			res.SkippedBinaryFiles++
		case FileFailed:
			res.FailedFiles++
		}
	}
	return res
}

// FolderNode is the directory tree seen in an archive. It is informational only.
type FolderNode struct {
	Dirs  map[string]*FolderNode
	Files []string
}

// NewFolderNode returns an empty tree root.
func NewFolderNode() *FolderNode {
	return &FolderNode{Dirs: make(map[string]*FolderNode)}
}

// Add records a slash-separated relative file path.
func (n *FolderNode) Add(rel string) {
	parts := strings.Split(rel, "/")
	cur := n
	for _, dir := range parts[:len(parts)-1] {
		next, ok := cur.Dirs[dir]
		if !ok {
			next = NewFolderNode()
			cur.Dirs[dir] = next
		}
		cur = next
	}
	cur.Files = append(cur.Files, parts[len(parts)-1])
}

// MarshalJSON renders directories as nested objects and a directory's own
// files under the "files" key. A subdirectory literally named "files" is
// shadowed by that list.
func (n *FolderNode) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Dirs)+1)
	for name, child := range n.Dirs {
		out[name] = child
	}
	if len(n.Files) > 0 {
		out["files"] = n.Files
	}
	return json.Marshal(out)
}

// IngestFolder extracts a zip archive and ingests every supported file into
// collection. Per-file problems are tallied and never abort the batch; the
// extraction workspace is removed on every exit path.
func (s *RAGService) IngestFolder(ctx context.Context, collection string, zipFile io.Reader, metadata map[string]any) (FolderResult, error) {
	if err := s.checkCollection(collection); err != nil {
		return FolderResult{}, err
	}

	ws, err := archive.Extract(zipFile)
	if err != nil {
		return FolderResult{}, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to remove extraction workspace")
		}
	}()

	files, err := ws.Files(s.extensions)
	if err != nil {
		return FolderResult{}, fmt.Errorf("%w: %v", domain.ErrArchive, err)
	}
	if len(files) == 0 {
		return FolderResult{}, domain.ErrNoSupportedFiles
	}
	log.Info().Str("collection", collection).Int("files", len(files)).Msg("ingesting folder")

	tree := NewFolderNode()
	outcomes := make([]FileOutcome, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return FolderResult{}, err
		}
		tree.Add(rel)
		o := s.ingestFile(ctx, collection, ws.Root(), rel, metadata)
		switch o.Status {
		case FileFailed:
			log.Error().Err(o.Err).Str("file", rel).Msg("error processing file")
		case FileSkipped:
			log.Debug().Str("file", rel).Msg("skipping binary or empty file")
		}
		outcomes = append(outcomes, o)
	}

	res := Summarize(outcomes)
	res.FolderStructure = tree
	log.Info().
		Str("collection", collection).
		Int("processed", res.FilesProcessed).
		Int("skipped", res.SkippedBinaryFiles).
		Int("failed", res.FailedFiles).
		Int("chunks", res.TotalChunks).
		Msg("folder ingested")
	return res, nil
}

func (s *RAGService) ingestFile(ctx context.Context, collection, root, rel string, metadata map[string]any) FileOutcome {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return FileOutcome{Path: rel, Status: FileFailed, Err: err}
	}
	if !utf8.Valid(data) || strings.TrimSpace(string(data)) == "" {
		return FileOutcome{Path: rel, Status: FileSkipped}
	}
	n, err := s.ingestDocument(ctx, collection, "", string(data), metadata, FileMetadata(rel))
	if err != nil {
		return FileOutcome{Path: rel, Status: FileFailed, Err: err}
	}
	return FileOutcome{Path: rel, Status: FileProcessed, Chunks: n}
}
