package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// ingestTransaction is the wire shape of one reported insider trade.
type ingestTransaction struct {
	Ticker      string    `json:"ticker"`
	CompanyName string    `json:"companyName"`
	Insider     string    `json:"insider"`
	Role        string    `json:"role"`
	Type        string    `json:"type"`
	Shares      float64   `json:"shares"`
	Price       float64   `json:"price"`
	Value       float64   `json:"value"`
	TradedAt    time.Time `json:"tradedAt"`
	Source      string    `json:"source"`
}

// handleIngestTransactions handles POST /api/ingest/transactions.
// New tickers are registered as tracked subjects and queued for analysis;
// tickers with work already in flight are admitted as no-ops.
func (s *Server) handleIngestTransactions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Transactions []ingestTransaction `json:"transactions"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Transactions) == 0 {
		WriteError(w, http.StatusBadRequest, "transactions array is required")
		return
	}

	now := time.Now().UTC()
	batch := make([]models.InsiderTransaction, 0, len(req.Transactions))
	bySubject := map[string]*ingestTransaction{}
	for i := range req.Transactions {
		tx := &req.Transactions[i]
		ticker := strings.ToUpper(strings.TrimSpace(tx.Ticker))
		if ticker == "" {
			WriteError(w, http.StatusBadRequest, "transaction ticker is required")
			return
		}
		tx.Ticker = ticker
		batch = append(batch, models.InsiderTransaction{
			Ticker:     ticker,
			Insider:    tx.Insider,
			Role:       tx.Role,
			Type:       tx.Type,
			Shares:     tx.Shares,
			Price:      tx.Price,
			Value:      tx.Value,
			TradedAt:   tx.TradedAt,
			IngestedAt: now,
		})
		if _, seen := bySubject[ticker]; !seen {
			bySubject[ticker] = tx
		}
	}

	if err := s.app.Storage.Transactions().SaveBatch(batch); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving transactions: %v", err))
		return
	}

	added := 0
	queued := 0
	for ticker, tx := range bySubject {
		_, err := s.app.Storage.Subjects().Get(ticker)
		isNew := err == models.ErrNotFound

		entry := &models.SubjectEntry{
			Ticker:      ticker,
			CompanyName: tx.CompanyName,
			Source:      tx.Source,
			LastSeenAt:  now,
		}
		if err := s.app.Storage.Subjects().Upsert(entry); err != nil {
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error registering subject %s: %v", ticker, err))
			return
		}

		if isNew {
			added++
			s.app.Orchestrator.Hub().BroadcastStreamEvent(models.StreamEvent{
				Type:      models.EventNewStockAdded,
				Ticker:    ticker,
				Timestamp: now,
			})
		}

		if _, err := s.app.Orchestrator.EnqueueAnalysis(ticker, "insider transaction ingest", models.PriorityNormal); err != nil {
			if err == models.ErrDuplicateInFlight {
				continue
			}
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error queueing analysis for %s: %v", ticker, err))
			return
		}
		queued++
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"ingested":     len(batch),
		"subjects":     len(bySubject),
		"new_subjects": added,
		"jobs_queued":  queued,
	})
}
