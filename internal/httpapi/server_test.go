package httpapi_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragqa/internal/chunker"
	"ragqa/internal/domain"
	"ragqa/internal/embedding/hashing"
	"ragqa/internal/httpapi"
	"ragqa/internal/service"
	"ragqa/internal/vectorstore/memory"
)

type echoGenerator struct{}

func (echoGenerator) Complete(_ context.Context, system, user string) (string, error) {
	return "answer to " + user, nil
}

func newTestServer(t *testing.T, maxUpload int64) *httptest.Server {
	t.Helper()
	ch, err := chunker.NewCharacterChunker(0, chunker.DefaultChunkOverlap)
	require.NoError(t, err)
	svc := service.NewRAGService(ch, hashing.NewEmbedder(64), memory.NewStorage(), echoGenerator{}, service.Options{
		Collections: []string{"slack", "docs", "codebase"},
		Extensions:  []string{".txt", ".md"},
	})
	require.NoError(t, svc.EnsureCollections(context.Background()))

	srv := httpapi.NewServer(httpapi.Config{MaxUploadBytes: maxUpload}, svc)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func postQuery(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestAPI_IngestThenQuery(t *testing.T) {
	ts := newTestServer(t, 0)

	body, ctype := multipartBody(t, map[string]string{
		"collection": "docs",
		"text":       "The deploy pipeline runs on every merge to main.",
		"metadata":   `{"author":"ops"}`,
	}, "", "", nil)
	resp, err := http.Post(ts.URL+"/ingest", ctype, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "success", out["status"])
	assert.EqualValues(t, 1, out["chunks_processed"])

	resp = postQuery(t, ts, `{"query":"deploy pipeline","collection":"docs","top_k":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode(t, resp)
	assert.Equal(t, "answer to deploy pipeline", out["answer"])
	sources, ok := out["sources"].([]any)
	require.True(t, ok)
	require.Len(t, sources, 1)
	src := sources[0].(map[string]any)
	assert.Equal(t, "docs", src["collection"])
	assert.Equal(t, "ops", src["metadata"].(map[string]any)["author"])
}

func TestAPI_IngestFile(t *testing.T) {
	ts := newTestServer(t, 0)

	body, ctype := multipartBody(t, map[string]string{"collection": "slack"}, "file", "thread.txt", []byte("standup moved to ten"))
	resp, err := http.Post(ts.URL+"/ingest", ctype, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["chunks_processed"])
}

func TestAPI_GlobalQueryHasNoSources(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := postQuery(t, ts, `{"query":"capital of France","collection":"global"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "answer to capital of France", out["answer"])
	assert.NotContains(t, out, "sources")
}

func TestAPI_ClientErrors(t *testing.T) {
	ts := newTestServer(t, 0)

	resp := postQuery(t, ts, `{"query":"x","collection":"marketing"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["detail"], "unknown collection")

	resp = postQuery(t, ts, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	body, ctype := multipartBody(t, map[string]string{"collection": "docs"}, "", "", nil)
	resp, err := http.Post(ts.URL+"/ingest", ctype, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	body, ctype = multipartBody(t, map[string]string{"collection": "docs", "text": "x", "metadata": "[1,2]"}, "", "", nil)
	resp, err = http.Post(ts.URL+"/ingest", ctype, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestAPI_IngestFolder(t *testing.T) {
	ts := newTestServer(t, 0)

	archive := zipOf(t, map[string]string{"a.txt": "alpha", "sub/b.md": "beta"})
	body, ctype := multipartBody(t, map[string]string{"collection": "codebase"}, "folder_zip", "repo.zip", archive)
	resp, err := http.Post(ts.URL+"/ingest-folder", ctype, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "success", out["status"])
	assert.EqualValues(t, 2, out["files_processed"])
	assert.EqualValues(t, 2, out["total_chunks"])
	assert.EqualValues(t, 0, out["failed_files"])
	assert.EqualValues(t, 0, out["skipped_binary_files"])
	tree := out["folder_structure"].(map[string]any)
	assert.Equal(t, []any{"a.txt"}, tree["files"])
	assert.Equal(t, []any{"b.md"}, tree["sub"].(map[string]any)["files"])
}

func TestAPI_IngestFolderWithoutSupportedFiles(t *testing.T) {
	ts := newTestServer(t, 0)

	archive := zipOf(t, map[string]string{"image.png": "png"})
	body, ctype := multipartBody(t, map[string]string{"collection": "docs"}, "folder_zip", "x.zip", archive)
	resp, err := http.Post(ts.URL+"/ingest-folder", ctype, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "No supported files found in the uploaded folder", out["message"])
}

func TestAPI_IngestFolderRejectsCorruptArchive(t *testing.T) {
	ts := newTestServer(t, 0)

	body, ctype := multipartBody(t, map[string]string{"collection": "docs"}, "folder_zip", "x.zip", []byte("garbage"))
	resp, err := http.Post(ts.URL+"/ingest-folder", ctype, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_UploadLimit(t *testing.T) {
	ts := newTestServer(t, 1024)

	body, ctype := multipartBody(t, map[string]string{"collection": "docs"}, "file", "big.txt", bytes.Repeat([]byte("a"), 4096))
	resp, err := http.Post(ts.URL+"/ingest", ctype, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_CollectionsHealthAndCORS(t *testing.T) {
	ts := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/collections")
	require.NoError(t, err)
	assert.Equal(t, []any{"slack", "docs", "codebase", "global"}, decode(t, resp)["collections"])

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "ok", decode(t, resp)["status"])

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/query", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

type failingRAG struct{ err error }

func (f failingRAG) IngestText(context.Context, service.IngestRequest) (service.IngestResult, error) {
	return service.IngestResult{}, f.err
}

func (f failingRAG) IngestFolder(context.Context, string, io.Reader, map[string]any) (service.FolderResult, error) {
	return service.FolderResult{}, f.err
}

func (f failingRAG) Query(context.Context, service.QueryRequest) (service.Answer, error) {
	return service.Answer{}, f.err
}

func (f failingRAG) Targets() []string { return nil }

func TestAPI_UpstreamFailureIs500(t *testing.T) {
	srv := httpapi.NewServer(httpapi.Config{}, failingRAG{err: errors.New("qdrant unreachable")})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postQuery(t, ts, `{"query":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "qdrant unreachable", decode(t, resp)["detail"])

	srv = httpapi.NewServer(httpapi.Config{}, failingRAG{err: domain.ErrArchive})
	ts2 := httptest.NewServer(srv.Handler())
	defer ts2.Close()
	body, ctype := multipartBody(t, map[string]string{"collection": "docs"}, "folder_zip", "x.zip", []byte("zip"))
	resp, err := http.Post(ts2.URL+"/ingest-folder", ctype, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
