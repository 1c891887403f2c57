package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func (s *Server) handleSubjectList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	subjects, err := s.app.Storage.Subjects().List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing subjects: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subjects": subjects,
		"count":    len(subjects),
	})
}

// handleSubject handles GET and DELETE /api/subjects/{ticker}.
// DELETE cancels any in-flight work before removing the subject and its
// analysis result.
func (s *Server) handleSubject(w http.ResponseWriter, r *http.Request, ticker string) {
	switch r.Method {
	case http.MethodGet:
		entry, err := s.app.Storage.Subjects().Get(ticker)
		if err != nil {
			if err == models.ErrNotFound {
				WriteError(w, http.StatusNotFound, fmt.Sprintf("Subject %s not tracked", ticker))
				return
			}
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading subject: %v", err))
			return
		}
		WriteJSON(w, http.StatusOK, entry)

	case http.MethodDelete:
		if _, err := s.app.Storage.Subjects().Get(ticker); err != nil {
			if err == models.ErrNotFound {
				WriteError(w, http.StatusNotFound, fmt.Sprintf("Subject %s not tracked", ticker))
				return
			}
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading subject: %v", err))
			return
		}

		if err := s.app.Storage.Jobs().RequestCancel(ticker); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error cancelling jobs: %v", err))
			return
		}
		if err := s.app.Storage.Analyses().Delete(ticker); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting analysis: %v", err))
			return
		}
		if err := s.app.Storage.Subjects().Delete(ticker); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error deleting subject: %v", err))
			return
		}

		s.logger.Info().Str("ticker", ticker).Msg("Subject removed")
		WriteJSON(w, http.StatusOK, map[string]string{"removed": ticker})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handleSubjectAnalysis handles GET /api/subjects/{ticker}/analysis.
// Pending and in-flight analyses return their current status so clients
// can poll until the result lands.
func (s *Server) handleSubjectAnalysis(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	analysis, err := s.app.Storage.Analyses().Get(ticker)
	if err != nil {
		if err == models.ErrNotFound {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("No analysis for %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading analysis: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSubjectTransactions(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryLimit(r, 100, 500)
	txs, err := s.app.Storage.Transactions().ListBySubject(ticker, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error listing transactions: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":       ticker,
		"transactions": txs,
		"count":        len(txs),
	})
}

// handleSubjectReanalyze handles POST /api/subjects/{ticker}/reanalyze.
func (s *Server) handleSubjectReanalyze(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Priority string `json:"priority"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	priority := models.PriorityHigh
	if req.Priority != "" {
		priority = models.ParsePriority(req.Priority)
	}

	job, err := s.app.Orchestrator.EnqueueAnalysis(ticker, "manual reanalyze", priority)
	if err != nil {
		if err == models.ErrDuplicateInFlight {
			WriteError(w, http.StatusConflict, fmt.Sprintf("Analysis already in flight for %s", ticker))
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error queueing analysis: %v", err))
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// handleSubjectCancel handles POST /api/subjects/{ticker}/cancel.
func (s *Server) handleSubjectCancel(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.Storage.Jobs().RequestCancel(ticker); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error cancelling jobs: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"cancelled": ticker})
}

// handleAnalysisGet handles GET /api/analysis/{ticker}.
func (s *Server) handleAnalysisGet(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/analysis/"))
	if ticker == "" || strings.Contains(ticker, "/") {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}
	s.handleSubjectAnalysis(w, r, ticker)
}
