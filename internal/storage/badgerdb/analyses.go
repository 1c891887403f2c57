package badgerdb

import (
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// analysisStore implements interfaces.AnalysisStore. One record per
// subject; each completed run supersedes the previous one.
type analysisStore struct {
	s *Store
}

func (a *analysisStore) Save(analysis *models.StockAnalysis) error {
	analysis.UpdatedAt = time.Now().UTC()
	if err := a.s.db.Upsert(analysis.SubjectKey, analysis); err != nil {
		return fmt.Errorf("failed to save analysis for '%s': %w", analysis.SubjectKey, err)
	}
	return nil
}

func (a *analysisStore) Get(subjectKey string) (*models.StockAnalysis, error) {
	var analysis models.StockAnalysis
	if err := a.s.db.Get(subjectKey, &analysis); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis for '%s': %w", subjectKey, err)
	}
	return &analysis, nil
}

func (a *analysisStore) Delete(subjectKey string) error {
	if err := a.s.db.Delete(subjectKey, models.StockAnalysis{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete analysis for '%s': %w", subjectKey, err)
	}
	return nil
}
