package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Ingest
	mux.HandleFunc("/api/ingest/transactions", s.handleIngestTransactions)

	// Subjects
	mux.HandleFunc("/api/subjects/", s.routeSubjects)
	mux.HandleFunc("/api/subjects", s.handleSubjectList)

	// Analysis results
	mux.HandleFunc("/api/analysis/", s.handleAnalysisGet)

	// Jobs
	mux.HandleFunc("/api/jobs/stats", s.handleJobStats)
	mux.HandleFunc("/api/jobs/", s.handleJobGet)
	mux.HandleFunc("/api/jobs", s.handleJobList)

	// Notifications
	mux.HandleFunc("/api/notifications/", s.routeNotifications)
	mux.HandleFunc("/api/notifications", s.handleNotificationList)

	// Live updates
	mux.HandleFunc("/api/events", s.handleEvents)
}

// routeSubjects dispatches /api/subjects/{ticker}/* to the appropriate handler.
func (s *Server) routeSubjects(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/subjects/")
	if path == "" {
		s.handleSubjectList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	ticker := strings.ToUpper(parts[0])
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handleSubject(w, r, ticker)
	case "analysis":
		s.handleSubjectAnalysis(w, r, ticker)
	case "transactions":
		s.handleSubjectTransactions(w, r, ticker)
	case "reanalyze":
		s.handleSubjectReanalyze(w, r, ticker)
	case "cancel":
		s.handleSubjectCancel(w, r, ticker)
	case "chart.png":
		s.handleSubjectChart(w, r, ticker)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// routeNotifications dispatches /api/notifications/{id}/read.
func (s *Server) routeNotifications(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 2 && parts[1] == "read" {
		s.handleNotificationRead(w, r, parts[0])
		return
	}
	WriteError(w, http.StatusNotFound, "Not found")
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleEvents upgrades the connection and attaches it to the broadcast hub.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.app.Orchestrator.Hub().ServeWS(w, r)
}
