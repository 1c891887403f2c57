package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func (s *Server) handleJobList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", models.JobStatusPending, models.JobStatusProcessing,
		models.JobStatusCompleted, models.JobStatusFailed:
	default:
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", status))
		return
	}

	limit := queryLimit(r, 50, 500)
	jobs, err := s.app.Storage.Jobs().List(status, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing jobs: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleJobStats handles GET /api/jobs/stats. Counts are maintained
// in memory, so this stays cheap under polling.
func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := s.app.Storage.Jobs().Stats()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading queue stats: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "job id is required in path")
		return
	}

	job, err := s.app.Storage.Jobs().Get(id)
	if err != nil {
		if err == models.ErrNotFound {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading job: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
