// Package surrealdb implements the storage facade on an external
// SurrealDB instance. Selected with storage.engine = "surrealdb".
package surrealdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/surrealdb/surrealdb.go"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// Store implements interfaces.StorageManager using SurrealDB.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger

	// mu guards the queue critical section and the in-memory stats
	// counters, mirroring the embedded engine's guarantees.
	mu       sync.Mutex
	counters models.QueueStats

	jobs          *jobStore
	subjects      *subjectStore
	analyses      *analysisStore
	notifications *notificationStore
	transactions  *transactionStore
}

// NewStore connects to SurrealDB, ensures the tables exist and seeds the
// queue counters.
func NewStore(config *common.Config, logger *common.Logger) (*Store, error) {
	ctx := context.Background()
	sc := config.Storage.SurrealDB

	db, err := surrealdb.New(sc.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": sc.Username,
		"pass": sc.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, sc.Namespace, sc.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying tables that don't exist yet.
	tables := []string{"analysis_job", "subject", "analysis", "notification", "insider_transaction"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	s := &Store{db: db, logger: logger}
	s.jobs = &jobStore{s}
	s.subjects = &subjectStore{s}
	s.analyses = &analysisStore{s}
	s.notifications = &notificationStore{s}
	s.transactions = &transactionStore{s}

	if err := s.jobs.seedCounters(ctx); err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", sc.Address).
		Str("namespace", sc.Namespace).
		Str("database", sc.Database).
		Msg("SurrealDB storage manager initialized")

	return s, nil
}

func (s *Store) Jobs() interfaces.JobStore                   { return s.jobs }
func (s *Store) Subjects() interfaces.SubjectStore           { return s.subjects }
func (s *Store) Analyses() interfaces.AnalysisStore          { return s.analyses }
func (s *Store) Notifications() interfaces.NotificationStore { return s.notifications }
func (s *Store) Transactions() interfaces.TransactionStore   { return s.transactions }

func (s *Store) Close() error {
	s.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Store)(nil)
