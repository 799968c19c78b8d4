package httpadapter

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendorgrid/internal/ingest"
)

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.manager.SourceStatuses()})
}

// jobAccepted is the 202 payload for newly started ingestion jobs.
type jobAccepted struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

func (s *Server) handleIngestFull(w http.ResponseWriter, r *http.Request) {
	if s.manager.HasActiveFullRun() {
		writeJSONError(w, http.StatusConflict, "full_run_active", "a full ingestion run is already active")
		return
	}
	// Jobs outlive the request that started them.
	job := s.manager.StartFullJob(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: ingest.JobQueued})
}

func (s *Server) handleIngestSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	src, ok := s.manager.Catalog().ByID(sourceID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown source: "+sourceID)
		return
	}
	if !src.Enabled {
		writeJSONError(w, http.StatusConflict, "source_disabled", "source is disabled: "+sourceID)
		return
	}
	job := s.manager.StartSourceJob(context.WithoutCancel(r.Context()), src)
	writeJSON(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: ingest.JobQueued})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	running, completed, failed := s.manager.Jobs().Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":      s.manager.Jobs().List(),
		"running":   running,
		"completed": completed,
		"failed":    failed,
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Jobs().Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleJobPause(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Jobs().Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown job")
		return
	}
	if !job.Pause() {
		writeJSONError(w, http.StatusConflict, "not_pausable", "job is not running")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

func (s *Server) handleJobResume(w http.ResponseWriter, r *http.Request) {
	job, ok := s.manager.Jobs().Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown job")
		return
	}
	if !job.Resume() {
		writeJSONError(w, http.StatusConflict, "not_paused", "job is not paused")
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}
