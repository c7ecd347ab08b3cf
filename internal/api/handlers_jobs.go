package api

import (
	"fmt"
	"net/http"

	"github.com/dgallion1/resumedraft/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleSubmitGeneration queues a generation whose result replaces the
// live document.
func (s *Server) handleSubmitGeneration(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	text, err := s.profileText(r.Context(), req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}

	job := pipeline.NewJob(text, req.Instructions)
	if err := s.Orchestrator.Submit(job); err != nil {
		writeError(w, err)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.Orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
