// Package badgerdb implements the storage facade on an embedded
// BadgerHold database. This is the default engine: zero external
// dependencies, everything under one data directory.
package badgerdb

import (
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// Store implements interfaces.StorageManager using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger

	// mu guards the queue critical section: the single-flight check on
	// enqueue and the pop on dequeue must be atomic with respect to
	// concurrent callers.
	mu       sync.Mutex
	counters models.QueueStats
}

// NewStore opens (or creates) the BadgerHold database at path and seeds
// the O(1) queue counters with one scan.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Options = badger.DefaultOptions(path).WithLogger(nil)
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.seedCounters(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("Badger store opened")
	return s, nil
}

func (s *Store) seedCounters() error {
	var jobs []models.AnalysisJob
	if err := s.db.Find(&jobs, nil); err != nil {
		return fmt.Errorf("failed to seed queue counters: %w", err)
	}
	for i := range jobs {
		switch jobs[i].Status {
		case models.JobStatusPending:
			s.counters.Pending++
		case models.JobStatusProcessing:
			s.counters.Processing++
		case models.JobStatusCompleted:
			s.counters.Completed++
		case models.JobStatusFailed:
			s.counters.Failed++
		}
	}
	return nil
}

func (s *Store) Jobs() interfaces.JobStore                   { return &jobStore{s} }
func (s *Store) Subjects() interfaces.SubjectStore           { return &subjectStore{s} }
func (s *Store) Analyses() interfaces.AnalysisStore          { return &analysisStore{s} }
func (s *Store) Notifications() interfaces.NotificationStore { return &notificationStore{s} }
func (s *Store) Transactions() interfaces.TransactionStore   { return &transactionStore{s} }

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
