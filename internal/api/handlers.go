package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hookmill/hookmill/internal/engine"
	"github.com/hookmill/hookmill/internal/export"
	"github.com/hookmill/hookmill/internal/model"
)

// ---------------------------------------------------------------------------
// POST /api/generate
// ---------------------------------------------------------------------------

type generateRequest struct {
	Seed  string `json:"seed"`
	Batch int    `json:"batch"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Seed = strings.TrimSpace(req.Seed)
	if req.Seed == "" {
		writeError(w, http.StatusBadRequest, "seed is required")
		return
	}
	batch := req.Batch
	if batch <= 0 {
		settings, err := s.store.LoadSettings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		batch = settings.BatchSize
	}
	if batch < 1 {
		batch = 1
	} else if batch > 10 {
		batch = 10
	}

	// The run outlives the request; status is polled separately. Start
	// reserves the run before returning, so concurrent posts cannot both
	// claim it.
	err := s.orch.Start(req.Seed, batch)
	switch {
	case errors.Is(err, engine.ErrRunActive):
		writeError(w, http.StatusConflict, "a generation run is already active")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to start run")
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "started",
			"batch":  batch,
		})
	}
}

func (s *Server) handleGenerateStop(w http.ResponseWriter, r *http.Request) {
	s.orch.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status())
}

// ---------------------------------------------------------------------------
// GET /api/artifacts
// ---------------------------------------------------------------------------

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.Filter{
		StarredOnly: q.Get("starred") == "true",
		Tag:         q.Get("tag"),
		Model:       q.Get("model"),
		Query:       q.Get("q"),
	}

	artifacts, err := s.store.Filter(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}
	if artifacts == nil {
		artifacts = []model.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

// ---------------------------------------------------------------------------
// GET /api/artifacts/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	a, ok := s.fetchArtifact(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ---------------------------------------------------------------------------
// PATCH /api/artifacts/{id}
// ---------------------------------------------------------------------------

type patchArtifactRequest struct {
	Starred *bool     `json:"starred"`
	Notes   *string   `json:"notes"`
	Tags    *[]string `json:"tags"`
}

func (s *Server) handlePatchArtifact(w http.ResponseWriter, r *http.Request) {
	a, ok := s.fetchArtifact(w, r)
	if !ok {
		return
	}

	var req patchArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Starred != nil {
		a.Starred = *req.Starred
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.Tags != nil {
		tags := make([]string, 0, len(*req.Tags))
		for _, t := range *req.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		a.Tags = tags
	}

	if err := s.store.Put(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update artifact")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ---------------------------------------------------------------------------
// DELETE /api/artifacts/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete artifact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// GET /api/artifacts/{id}/sections
// ---------------------------------------------------------------------------

func (s *Server) handleArtifactSections(w http.ResponseWriter, r *http.Request) {
	a, ok := s.fetchArtifact(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"title":  export.Title(a.Output),
		"chorus": export.Chorus(a.Output),
		"hook":   export.Hook(a.Output),
	})
}

// ---------------------------------------------------------------------------
// GET /api/artifacts/{id}/export
// ---------------------------------------------------------------------------

func (s *Server) handleExportArtifact(w http.ResponseWriter, r *http.Request) {
	a, ok := s.fetchArtifact(w, r)
	if !ok {
		return
	}
	titleSource := export.Title(a.Output)
	if titleSource == "" {
		titleSource = a.UserPrompt
	}
	writeAttachment(w, export.Filename(time.Now(), a.Preset, a.Lens, titleSource), a.Output)
}

// ---------------------------------------------------------------------------
// GET /api/export/starred
// ---------------------------------------------------------------------------

func (s *Server) handleExportStarred(w http.ResponseWriter, r *http.Request) {
	starred, err := s.store.Filter(r.Context(), model.Filter{StarredOnly: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list starred artifacts")
		return
	}
	if len(starred) == 0 {
		writeError(w, http.StatusNotFound, "no starred artifacts")
		return
	}
	writeAttachment(w, export.StarredFilename(time.Now()), export.Bundle(starred))
}

// ---------------------------------------------------------------------------
// POST /api/artifacts/{id}/refine
// ---------------------------------------------------------------------------

type refineRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handleRefineStart(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.refine.Start(r.Context(), r.PathValue("id"), engine.RefineKind(req.Kind))
	switch {
	case errors.Is(err, engine.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "unknown refine kind")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "artifact not found")
	case errors.Is(err, model.ErrMissingAPIKey):
		writeError(w, http.StatusBadRequest, "missing API key")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to start refinement")
	default:
		writeJSON(w, http.StatusAccepted, s.refine.Status())
	}
}

func (s *Server) handleRefineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.refine.Status())
}

func (s *Server) handleRefineAccept(w http.ResponseWriter, r *http.Request) {
	updated, err := s.refine.Accept(r.Context())
	switch {
	case errors.Is(err, engine.ErrRefineNotReady):
		writeError(w, http.StatusConflict, "no refinement awaiting accept")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "artifact no longer exists")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to accept refinement")
	default:
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleRefineDiscard(w http.ResponseWriter, r *http.Request) {
	s.refine.Discard()
	writeJSON(w, http.StatusOK, s.refine.Status())
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	settings = settings.Normalize()
	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// ---------------------------------------------------------------------------
// POST /api/library/clear
// ---------------------------------------------------------------------------

func (s *Server) handleClearLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear library")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ---------------------------------------------------------------------------
// POST /api/seed/extract
// ---------------------------------------------------------------------------

type seedExtractRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleSeedExtract(w http.ResponseWriter, r *http.Request) {
	var req seedExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	suggestion, err := s.seeds.Extract(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, "extraction failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// fetchArtifact loads the path artifact or writes the error response.
func (s *Server) fetchArtifact(w http.ResponseWriter, r *http.Request) (model.Artifact, bool) {
	a, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return model.Artifact{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get artifact")
		return model.Artifact{}, false
	}
	return a, true
}
