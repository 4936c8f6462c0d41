// Package watcher keeps a collection in sync with a local directory by
// ingesting files as they are created or modified.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"ragqa/internal/service"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester stores one document.
type Ingester interface {
	IngestText(ctx context.Context, req service.IngestRequest) (service.IngestResult, error)
}

// Watcher ingests supported files under a directory tree into one collection.
// Chunk ids are keyed by relative path, so saving a file again overwrites its
// earlier chunks rather than duplicating them.
type Watcher struct {
	root       string
	collection string
	extensions map[string]struct{}
	ingester   Ingester
	debounce   time.Duration
	fsw        *fsnotify.Watcher
}

// New creates a watcher for root. Subdirectories present now or created
// later are watched too.
func New(root, collection string, extensions []string, ingester Ingester) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	w := &Watcher{
		root:       root,
		collection: collection,
		extensions: exts,
		ingester:   ingester,
		debounce:   DefaultDebounce,
		fsw:        fsw,
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// SetDebounce overrides the quiet period before ingestion.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run blocks until ctx is cancelled. Ingestion errors are logged and the
// watch continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]time.Time)
	tick := time.NewTicker(max(w.debounce/2, 10*time.Millisecond))
	defer tick.Stop()

	log.Info().Str("dir", w.root).Str("collection", w.collection).Msg("watching directory")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.addTree(ev.Name); err != nil {
					log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch directory")
				}
				continue
			}
			if w.supported(ev.Name) {
				pending[ev.Name] = time.Now()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")
		case now := <-tick.C:
			for name, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, name)
				w.ingest(ctx, name)
			}
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, name string) {
	f, err := os.Open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Error().Err(err).Str("file", name).Msg("cannot open file")
		}
		return
	}
	defer f.Close()

	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		rel = filepath.Base(name)
	}
	rel = filepath.ToSlash(rel)
	res, err := w.ingester.IngestText(ctx, service.IngestRequest{
		Collection:  w.collection,
		File:        f,
		Filename:    path.Base(rel),
		DocumentKey: rel,
		Metadata: map[string]any{
			"path":      rel,
			"file_type": strings.ToLower(strings.TrimPrefix(path.Ext(rel), ".")),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("file", rel).Msg("error ingesting file")
		return
	}
	log.Info().Str("file", rel).Int("chunks", res.ChunksProcessed).Msg("file ingested")
}

func (w *Watcher) supported(name string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}
