package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"ragqa/internal/domain"
	"ragqa/internal/service"
)

// RAG is the application surface exposed over HTTP.
type RAG interface {
	IngestText(ctx context.Context, req service.IngestRequest) (service.IngestResult, error)
	IngestFolder(ctx context.Context, collection string, zipFile io.Reader, metadata map[string]any) (service.FolderResult, error)
	Query(ctx context.Context, req service.QueryRequest) (service.Answer, error)
	Targets() []string
}

// Config holds listener and request limits.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// multipart parts beyond this size spill to temporary files
const formMemory = 32 << 20

// Server represents the HTTP API server
type Server struct {
	rag       RAG
	maxUpload int64
	server    *http.Server
}

// NewServer creates a new API server
func NewServer(cfg Config, rag RAG) *Server {
	s := &Server{rag: rag, maxUpload: cfg.MaxUploadBytes}

	r := mux.NewRouter()
	r.HandleFunc("/ingest", s.ingest).Methods(http.MethodPost)
	r.HandleFunc("/ingest-folder", s.ingestFolder).Methods(http.MethodPost)
	r.HandleFunc("/query", s.query).Methods(http.MethodPost)
	r.HandleFunc("/collections", s.collections).Methods(http.MethodGet)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach method matching.
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      cors(logRequests(r)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("http server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	meta, err := parseMetadata(r.FormValue("metadata"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	req := service.IngestRequest{
		Collection: r.FormValue("collection"),
		Text:       r.FormValue("text"),
		Metadata:   meta,
	}
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		req.File = file
		req.Filename = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		s.respondError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	res, err := s.rag.IngestText(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, struct {
		Status string `json:"status"`
		service.IngestResult
	}{"success", res})
}

func (s *Server) ingestFolder(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	meta, err := parseMetadata(r.FormValue("metadata"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	file, _, err := r.FormFile("folder_zip")
	if err != nil {
		s.respondError(w, fmt.Errorf("%w: folder_zip is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	res, err := s.rag.IngestFolder(r.Context(), r.FormValue("collection"), file, meta)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, struct {
		Status string `json:"status"`
		service.FolderResult
	}{"success", res})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req service.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err))
		return
	}
	ans, err := s.rag.Query(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, ans)
}

func (s *Server) collections(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string][]string{"collections": s.rag.Targets()})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if s.maxUpload > 0 {
		if r.ContentLength > s.maxUpload {
			s.respondTooLarge(w)
			return false
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	err := r.ParseMultipartForm(formMemory)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondTooLarge(w)
		return false
	}
	s.respondError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	return false
}

func (s *Server) respondTooLarge(w http.ResponseWriter) {
	s.respond(w, http.StatusRequestEntityTooLarge, map[string]string{"detail": "upload exceeds size limit"})
}

func parseMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata must be a JSON object: %v", domain.ErrInvalidInput, err)
	}
	return meta, nil
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError maps domain errors onto status codes. An archive without
// supported files is reported in-band with a 200.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoSupportedFiles):
		s.respond(w, http.StatusOK, map[string]string{"status": "error", "message": "No supported files found in the uploaded folder"})
	case errors.Is(err, domain.ErrArchive), errors.Is(err, domain.ErrInvalidInput):
		s.respond(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		s.respond(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
	}
}
