// Package archive stages uploaded zip archives on disk and extracts them into a
// scoped temporary workspace.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ragqa/internal/domain"
)

// Workspace is a temporary directory holding an extracted archive. Close
// removes everything it holds and must be called on every exit path.
type Workspace struct {
	dir  string
	root string
}

// Extract copies the archive from r to a temp file and extracts its regular
// files. Any failure removes the partial workspace and wraps domain.ErrArchive.
func Extract(r io.Reader) (_ *Workspace, err error) {
	dir, err := os.MkdirTemp("", "ragqa-folder-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	ws := &Workspace{dir: dir, root: filepath.Join(dir, "root")}
	defer func() {
		if err != nil {
			_ = ws.Close()
		}
	}()

	zipPath := filepath.Join(dir, "upload.zip")
	if err := stage(zipPath, r); err != nil {
		return nil, err
	}
	if err := unzip(zipPath, ws.root); err != nil {
		return nil, err
	}
	return ws, nil
}

// Root is the directory the archive was extracted into.
func (w *Workspace) Root() string { return w.root }

// Close removes the workspace.
func (w *Workspace) Close() error { return os.RemoveAll(w.dir) }

// Files lists extracted files whose lower-cased extension is in exts, as
// slash-separated paths relative to Root, in lexical order.
func (w *Workspace) Files(exts []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = struct{}{}
	}
	var out []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := allowed[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk archive: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func stage(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage archive: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("stage archive: %w", err)
	}
	return f.Close()
}

func unzip(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArchive, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", domain.ErrArchive, f.Name, err)
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: extract %s: %v", domain.ErrArchive, f.Name, err)
	}
	return out.Close()
}

// safeJoin resolves name under dest and rejects entries escaping it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: illegal path %q", domain.ErrArchive, name)
	}
	return target, nil
}
