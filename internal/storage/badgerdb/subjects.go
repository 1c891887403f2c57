package badgerdb

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// subjectStore implements interfaces.SubjectStore.
type subjectStore struct {
	s *Store
}

func (r *subjectStore) Upsert(entry *models.SubjectEntry) error {
	now := time.Now().UTC()

	var existing models.SubjectEntry
	if err := r.s.db.Get(entry.Ticker, &existing); err == nil {
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

	if err := r.s.db.Upsert(entry.Ticker, entry); err != nil {
		return fmt.Errorf("failed to upsert subject '%s': %w", entry.Ticker, err)
	}
	return nil
}

func (r *subjectStore) Get(ticker string) (*models.SubjectEntry, error) {
	var entry models.SubjectEntry
	if err := r.s.db.Get(ticker, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject '%s': %w", ticker, err)
	}
	return &entry, nil
}

func (r *subjectStore) List() ([]*models.SubjectEntry, error) {
	var entries []models.SubjectEntry
	if err := r.s.db.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Ticker < entries[b].Ticker
	})
	result := make([]*models.SubjectEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

func (r *subjectStore) Delete(ticker string) error {
	if err := r.s.db.Delete(ticker, models.SubjectEntry{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete subject '%s': %w", ticker, err)
	}
	return nil
}
