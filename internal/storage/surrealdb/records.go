package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// subjectStore implements interfaces.SubjectStore on SurrealDB.
type subjectStore struct {
	s *Store
}

func (r *subjectStore) Upsert(entry *models.SubjectEntry) error {
	ctx := context.Background()
	now := time.Now().UTC()

	if existing, err := r.Get(entry.Ticker); err == nil {
		entry.AddedAt = existing.AddedAt
		// Carry forward analysis results the caller didn't supply, so a
		// re-ingest doesn't erase the last score.
		if entry.LastScore == nil {
			entry.LastScore = existing.LastScore
		}
		if entry.LastStance == "" {
			entry.LastStance = existing.LastStance
		}
		if entry.LastPrice == 0 {
			entry.LastPrice = existing.LastPrice
		}
		if entry.AnalyzedAt.IsZero() {
			entry.AnalyzedAt = existing.AnalyzedAt
		}
		if entry.CompanyName == "" {
			entry.CompanyName = existing.CompanyName
		}
		if entry.CurrentJobID == "" {
			entry.CurrentJobID = existing.CurrentJobID
		}
	} else if entry.AddedAt.IsZero() {
		entry.AddedAt = now
	}
	entry.LastSeenAt = now

	sql := "UPSERT $rid CONTENT $entry"
	vars := map[string]any{
		"rid":   surrealmodels.NewRecordID("subject", entry.Ticker),
		"entry": entry,
	}
	if _, err := surrealdb.Query[any](ctx, r.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert subject '%s': %w", entry.Ticker, err)
	}
	return nil
}

func (r *subjectStore) Get(ticker string) (*models.SubjectEntry, error) {
	sql := "SELECT * FROM subject WHERE ticker = $ticker LIMIT 1"
	results, err := surrealdb.Query[[]models.SubjectEntry](context.Background(), r.s.db, sql,
		map[string]any{"ticker": ticker})
	if err != nil {
		return nil, fmt.Errorf("failed to get subject '%s': %w", ticker, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (r *subjectStore) List() ([]*models.SubjectEntry, error) {
	sql := "SELECT * FROM subject ORDER BY ticker ASC"
	results, err := surrealdb.Query[[]models.SubjectEntry](context.Background(), r.s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	var entries []*models.SubjectEntry
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			entries = append(entries, &(*results)[0].Result[i])
		}
	}
	return entries, nil
}

func (r *subjectStore) Delete(ticker string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("subject", ticker)}
	if _, err := surrealdb.Query[any](context.Background(), r.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete subject '%s': %w", ticker, err)
	}
	return nil
}

// analysisStore implements interfaces.AnalysisStore on SurrealDB.
type analysisStore struct {
	s *Store
}

func (a *analysisStore) Save(analysis *models.StockAnalysis) error {
	analysis.UpdatedAt = time.Now().UTC()
	sql := "UPSERT $rid CONTENT $analysis"
	vars := map[string]any{
		"rid":      surrealmodels.NewRecordID("analysis", analysis.SubjectKey),
		"analysis": analysis,
	}
	if _, err := surrealdb.Query[any](context.Background(), a.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save analysis for '%s': %w", analysis.SubjectKey, err)
	}
	return nil
}

func (a *analysisStore) Get(subjectKey string) (*models.StockAnalysis, error) {
	sql := "SELECT * FROM analysis WHERE subject_key = $subject LIMIT 1"
	results, err := surrealdb.Query[[]models.StockAnalysis](context.Background(), a.s.db, sql,
		map[string]any{"subject": subjectKey})
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis for '%s': %w", subjectKey, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (a *analysisStore) Delete(subjectKey string) error {
	sql := "DELETE $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("analysis", subjectKey)}
	if _, err := surrealdb.Query[any](context.Background(), a.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to delete analysis for '%s': %w", subjectKey, err)
	}
	return nil
}

// notificationStore implements interfaces.NotificationStore on SurrealDB.
type notificationStore struct {
	s *Store
}

func (n *notificationStore) SaveIfNew(notification *models.Notification) (bool, error) {
	ctx := context.Background()
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	countSQL := "SELECT count() AS cnt FROM notification WHERE dedup_key = $key GROUP ALL"
	type countResult struct {
		Cnt int `json:"cnt"`
	}
	counts, err := surrealdb.Query[[]countResult](ctx, n.s.db, countSQL,
		map[string]any{"key": notification.DedupKey})
	if err != nil {
		return false, fmt.Errorf("failed to check notification dedup: %w", err)
	}
	if counts != nil && len(*counts) > 0 && len((*counts)[0].Result) > 0 && (*counts)[0].Result[0].Cnt > 0 {
		return false, nil
	}

	if notification.ID == "" {
		notification.ID = "ntf_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	sql := "UPSERT $rid CONTENT $notification"
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID("notification", notification.ID),
		"notification": notification,
	}
	if _, err := surrealdb.Query[any](ctx, n.s.db, sql, vars); err != nil {
		return false, fmt.Errorf("failed to save notification: %w", err)
	}
	return true, nil
}

func (n *notificationStore) List(limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	sql := "SELECT * FROM notification ORDER BY created_at DESC LIMIT $limit"
	results, err := surrealdb.Query[[]models.Notification](context.Background(), n.s.db, sql,
		map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	var notifications []*models.Notification
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			notifications = append(notifications, &(*results)[0].Result[i])
		}
	}
	return notifications, nil
}

func (n *notificationStore) MarkRead(id string) error {
	sql := "UPDATE $rid SET is_read = true"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("notification", id)}
	if _, err := surrealdb.Query[any](context.Background(), n.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

func (n *notificationStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	ctx := context.Background()
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	countSQL := "SELECT count() AS cnt FROM notification WHERE created_at < $cutoff GROUP ALL"
	type countResult struct {
		Cnt int `json:"cnt"`
	}
	vars := map[string]any{"cutoff": cutoff}
	counts, err := surrealdb.Query[[]countResult](ctx, n.s.db, countSQL, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count old notifications: %w", err)
	}
	purged := 0
	if counts != nil && len(*counts) > 0 && len((*counts)[0].Result) > 0 {
		purged = (*counts)[0].Result[0].Cnt
	}

	deleteSQL := "DELETE FROM notification WHERE created_at < $cutoff"
	if _, err := surrealdb.Query[any](ctx, n.s.db, deleteSQL, vars); err != nil {
		return 0, fmt.Errorf("failed to purge old notifications: %w", err)
	}
	return purged, nil
}

// transactionStore implements interfaces.TransactionStore on SurrealDB.
type transactionStore struct {
	s *Store
}

func (t *transactionStore) SaveBatch(txs []models.InsiderTransaction) error {
	ctx := context.Background()
	now := time.Now().UTC()
	for i := range txs {
		tx := &txs[i]
		if tx.ID == "" {
			tx.ID = "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
		}
		if tx.IngestedAt.IsZero() {
			tx.IngestedAt = now
		}
		sql := "UPSERT $rid CONTENT $tx"
		vars := map[string]any{
			"rid": surrealmodels.NewRecordID("insider_transaction", tx.ID),
			"tx":  tx,
		}
		if _, err := surrealdb.Query[any](ctx, t.s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save transaction for '%s': %w", tx.Ticker, err)
		}
	}
	return nil
}

func (t *transactionStore) ListBySubject(ticker string, limit int) ([]models.InsiderTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	sql := "SELECT * FROM insider_transaction WHERE ticker = $ticker ORDER BY traded_at DESC LIMIT $limit"
	results, err := surrealdb.Query[[]models.InsiderTransaction](context.Background(), t.s.db, sql,
		map[string]any{"ticker": ticker, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for '%s': %w", ticker, err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
