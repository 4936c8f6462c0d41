package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/domain"
)

func buildZip(t *testing.T, files map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return &buf
}

func TestExtract_ListsSupportedFilesInOrder(t *testing.T) {
	buf := buildZip(t, map[string]string{
		"b.md":             "# b",
		"a.txt":            "a",
		"src/main.go":      "package main",
		"src/logo.png":     "\x89PNG",
		"docs/deep/x.YAML": "k: v",
	})

	ws, err := Extract(buf)
	require.NoError(t, err)
	defer ws.Close()

	files, err := ws.Files([]string{".txt", ".md", ".go", ".yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.md", "docs/deep/x.YAML", "src/main.go"}, files)

	data, err := os.ReadFile(filepath.Join(ws.Root(), "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestWorkspace_CloseRemovesEverything(t *testing.T) {
	ws, err := Extract(buildZip(t, map[string]string{"a.txt": "a"}))
	require.NoError(t, err)

	dir := filepath.Dir(ws.Root())
	require.NoError(t, ws.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestExtract_CorruptArchive(t *testing.T) {
	_, err := Extract(strings.NewReader("definitely not a zip"))
	assert.ErrorIs(t, err, domain.ErrArchive)
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	_, err := Extract(buildZip(t, map[string]string{"../escape.txt": "x"}))
	assert.ErrorIs(t, err, domain.ErrArchive)
}
