package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hookmill/hookmill/internal/engine"
	"github.com/hookmill/hookmill/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// SeedSource turns a URL into a generation premise.
type SeedSource interface {
	Extract(ctx context.Context, url string) (*engine.SeedSuggestion, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store      store.Repository
	orch       *engine.Orchestrator
	refine     *engine.RefineSession
	seeds      SeedSource
	corsOrigin string
	mux        *http.ServeMux
}

// New creates a new API server.
func New(repo store.Repository, orch *engine.Orchestrator, refine *engine.RefineSession, seeds SeedSource, corsOrigin string) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	srv := &Server{
		store:      repo,
		orch:       orch,
		refine:     refine,
		seeds:      seeds,
		corsOrigin: corsOrigin,
		mux:        http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/generate/stop", s.handleGenerateStop)
	s.mux.HandleFunc("GET /api/generate/status", s.handleGenerateStatus)

	s.mux.HandleFunc("GET /api/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /api/artifacts/{id}", s.handleGetArtifact)
	s.mux.HandleFunc("PATCH /api/artifacts/{id}", s.handlePatchArtifact)
	s.mux.HandleFunc("DELETE /api/artifacts/{id}", s.handleDeleteArtifact)
	s.mux.HandleFunc("GET /api/artifacts/{id}/sections", s.handleArtifactSections)
	s.mux.HandleFunc("GET /api/artifacts/{id}/export", s.handleExportArtifact)
	s.mux.HandleFunc("GET /api/export/starred", s.handleExportStarred)

	s.mux.HandleFunc("POST /api/artifacts/{id}/refine", s.handleRefineStart)
	s.mux.HandleFunc("GET /api/refine", s.handleRefineStatus)
	s.mux.HandleFunc("POST /api/refine/accept", s.handleRefineAccept)
	s.mux.HandleFunc("POST /api/refine/discard", s.handleRefineDiscard)

	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	s.mux.HandleFunc("POST /api/library/clear", s.handleClearLibrary)
	s.mux.HandleFunc("POST /api/seed/extract", s.handleSeedExtract)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAttachment serves a plain-text download, overriding the default
// JSON content type set by the middleware. Filenames are slug-built and
// carry no characters needing header escaping.
func writeAttachment(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}
