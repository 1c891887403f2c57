package badgerdb

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// transactionStore implements interfaces.TransactionStore.
type transactionStore struct {
	s *Store
}

func (t *transactionStore) SaveBatch(txs []models.InsiderTransaction) error {
	now := time.Now().UTC()
	for i := range txs {
		tx := &txs[i]
		if tx.ID == "" {
			tx.ID = "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
		}
		if tx.IngestedAt.IsZero() {
			tx.IngestedAt = now
		}
		if err := t.s.db.Upsert(tx.ID, tx); err != nil {
			return fmt.Errorf("failed to save transaction for '%s': %w", tx.Ticker, err)
		}
	}
	return nil
}

func (t *transactionStore) ListBySubject(ticker string, limit int) ([]models.InsiderTransaction, error) {
	var txs []models.InsiderTransaction
	if err := t.s.db.Find(&txs, badgerhold.Where("Ticker").Eq(ticker)); err != nil {
		return nil, fmt.Errorf("failed to list transactions for '%s': %w", ticker, err)
	}
	sort.Slice(txs, func(a, b int) bool {
		return txs[a].TradedAt.After(txs[b].TradedAt)
	})
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
