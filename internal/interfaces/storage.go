// Package interfaces defines the contracts between the pipeline's
// components and their storage and client collaborators.
package interfaces

import (
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// StorageManager is the facade over all persistent stores. Implementations
// exist for the embedded badger engine and for SurrealDB.
type StorageManager interface {
	Jobs() JobStore
	Subjects() SubjectStore
	Analyses() AnalysisStore
	Notifications() NotificationStore
	Transactions() TransactionStore
	Close() error
}

// JobStore is the durable priority job queue. Enqueue and DequeueNext are
// atomic with respect to concurrent callers.
type JobStore interface {
	// Enqueue creates a pending job for the subject. Returns
	// models.ErrDuplicateInFlight if a non-terminal job already exists.
	Enqueue(subjectKey, reason string, priority models.JobPriority) (*models.AnalysisJob, error)

	// DequeueNext pops the highest-priority oldest eligible pending job and
	// atomically transitions it to processing. Returns models.ErrQueueEmpty
	// when nothing is eligible.
	DequeueNext() (*models.AnalysisJob, error)

	// Get returns the job by ID, or models.ErrNotFound.
	Get(id string) (*models.AnalysisJob, error)

	// Update persists phase/substep/progress changes on a processing job.
	Update(job *models.AnalysisJob) error

	// MarkCompleted transitions the job to its completed terminal state.
	MarkCompleted(id string) error

	// MarkFailed transitions the job to failed with the given reason and
	// increments its attempt count.
	MarkFailed(id, reason string) error

	// FailAndRetry terminally fails a job and, while the attempt count
	// stays below maxAttempts, enqueues a fresh low-priority successor
	// that becomes eligible at availableAt. Returns the successor, or nil
	// when retries are exhausted. The whole transition is atomic with
	// respect to the single-flight guarantee.
	FailAndRetry(id, reason string, maxAttempts int, availableAt time.Time) (*models.AnalysisJob, error)

	// HasActiveJob reports whether the subject has a pending or processing job.
	HasActiveJob(subjectKey string) (bool, error)

	// RequestCancel fails pending jobs for the subject with reason
	// "cancelled" and flags the processing job, if any, so its worker
	// aborts at the next phase boundary.
	RequestCancel(subjectKey string) error

	// ListStale returns processing jobs with no update since the cutoff.
	ListStale(cutoff time.Time) ([]*models.AnalysisJob, error)

	// ResetAbandoned fails any job left in processing state, used on
	// startup to recover from a crash.
	ResetAbandoned() (int, error)

	// PurgeTerminal deletes completed and failed jobs older than the cutoff.
	PurgeTerminal(cutoff time.Time) (int, error)

	// List returns jobs filtered by status (empty status returns all),
	// newest first, up to limit.
	List(status string, limit int) ([]*models.AnalysisJob, error)

	// Stats returns O(1) queue counters.
	Stats() (*models.QueueStats, error)
}

// SubjectStore is the registry of tracked securities.
type SubjectStore interface {
	Upsert(entry *models.SubjectEntry) error
	Get(ticker string) (*models.SubjectEntry, error)
	List() ([]*models.SubjectEntry, error)
	Delete(ticker string) error
}

// AnalysisStore holds the latest analysis result per subject.
type AnalysisStore interface {
	Save(analysis *models.StockAnalysis) error
	Get(subjectKey string) (*models.StockAnalysis, error)
	Delete(subjectKey string) error
}

// NotificationStore records threshold-crossing notifications and enforces
// the dedup key.
type NotificationStore interface {
	// SaveIfNew persists the notification unless one with the same dedup
	// key already exists; returns true when saved.
	SaveIfNew(n *models.Notification) (bool, error)
	List(limit int) ([]*models.Notification, error)
	MarkRead(id string) error

	// PurgeOlderThan deletes notifications (and their dedup keys) created
	// before the cutoff.
	PurgeOlderThan(cutoff time.Time) (int, error)
}

// TransactionStore holds ingested insider transactions per subject.
type TransactionStore interface {
	SaveBatch(txs []models.InsiderTransaction) error
	ListBySubject(ticker string, limit int) ([]models.InsiderTransaction, error)
}
