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

// jobStore implements interfaces.JobStore on the shared badger store.
type jobStore struct {
	s *Store
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (j *jobStore) Enqueue(subjectKey, reason string, priority models.JobPriority) (*models.AnalysisJob, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	active, err := j.activeLocked(subjectKey)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, models.ErrDuplicateInFlight
	}

	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:          newJobID(),
		SubjectKey:  subjectKey,
		Reason:      reason,
		Priority:    priority,
		Status:      models.JobStatusPending,
		CreatedAt:   now,
		AvailableAt: now,
		UpdatedAt:   now,
	}

	if err := j.s.db.Insert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job for '%s': %w", subjectKey, err)
	}
	j.s.counters.Pending++

	j.s.logger.Debug().
		Str("job_id", job.ID).
		Str("subject", subjectKey).
		Str("priority", priority.String()).
		Msg("Job enqueued")
	return job, nil
}

// enqueueRetry creates the backoff-delayed successor of a failed job. The
// caller holds the queue lock.
func (j *jobStore) enqueueRetryLocked(prev *models.AnalysisJob, availableAt time.Time) (*models.AnalysisJob, error) {
	now := time.Now().UTC()
	job := &models.AnalysisJob{
		ID:           newJobID(),
		SubjectKey:   prev.SubjectKey,
		Reason:       "retry: " + prev.Reason,
		Priority:     models.PriorityLow,
		Status:       models.JobStatusPending,
		CreatedAt:    now,
		AvailableAt:  availableAt,
		UpdatedAt:    now,
		AttemptCount: prev.AttemptCount,
	}
	if err := j.s.db.Insert(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue retry for '%s': %w", prev.SubjectKey, err)
	}
	j.s.counters.Pending++
	return job, nil
}

func (j *jobStore) DequeueNext() (*models.AnalysisJob, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	var pending []models.AnalysisJob
	if err := j.s.db.Find(&pending, badgerhold.Where("Status").Eq(models.JobStatusPending)); err != nil {
		return nil, fmt.Errorf("failed to scan pending jobs: %w", err)
	}

	now := time.Now().UTC()
	var eligible []*models.AnalysisJob
	for i := range pending {
		if !pending[i].AvailableAt.After(now) {
			eligible = append(eligible, &pending[i])
		}
	}
	if len(eligible) == 0 {
		return nil, models.ErrQueueEmpty
	}

	sort.Slice(eligible, func(a, b int) bool {
		if eligible[a].Priority != eligible[b].Priority {
			return eligible[a].Priority > eligible[b].Priority
		}
		return eligible[a].CreatedAt.Before(eligible[b].CreatedAt)
	})

	job := eligible[0]
	job.Status = models.JobStatusProcessing
	job.StartedAt = now
	job.UpdatedAt = now
	if err := j.s.db.Update(job.ID, job); err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}
	j.s.counters.Pending--
	j.s.counters.Processing++

	return job, nil
}

func (j *jobStore) Get(id string) (*models.AnalysisJob, error) {
	var job models.AnalysisJob
	if err := j.s.db.Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

func (j *jobStore) Update(job *models.AnalysisJob) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	// The stored record is authoritative for state set by other
	// goroutines: a terminal status (the reaper got here first) must not
	// be overwritten, and a cancel flag must survive the worker's own
	// phase updates, which carry a copy read before the flag landed.
	var stored models.AnalysisJob
	if err := j.s.db.Get(job.ID, &stored); err == nil {
		if stored.IsTerminal() {
			return models.ErrJobSuperseded
		}
		if stored.CancelRequested {
			job.CancelRequested = true
		}
	}

	job.UpdatedAt = time.Now().UTC()
	if err := j.s.db.Update(job.ID, job); err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return nil
}

func (j *jobStore) MarkCompleted(id string) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	job, err := j.Get(id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return models.ErrJobSuperseded
	}
	prev := job.Status

	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.Phase = models.PhaseComplete
	job.CompletedAt = now
	job.UpdatedAt = now
	if err := j.s.db.Update(id, job); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	j.adjustLocked(prev, models.JobStatusCompleted)
	return nil
}

func (j *jobStore) MarkFailed(id, reason string) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.markFailedLocked(id, reason)
}

func (j *jobStore) markFailedLocked(id, reason string) error {
	job, err := j.Get(id)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return nil
	}
	prev := job.Status

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.FailureReason = reason
	job.AttemptCount++
	job.CompletedAt = now
	job.UpdatedAt = now
	if err := j.s.db.Update(id, job); err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	j.adjustLocked(prev, models.JobStatusFailed)
	return nil
}

// FailAndRetry terminally fails a job and, below the attempt ceiling,
// enqueues its successor with backoff. Returns the new job, or nil when
// retries are exhausted or the failure is non-retryable.
func (j *jobStore) FailAndRetry(id, reason string, maxAttempts int, availableAt time.Time) (*models.AnalysisJob, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	job, err := j.Get(id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		// Already failed (or completed) elsewhere; its retry, if due,
		// was scheduled by whoever got here first.
		return nil, models.ErrJobSuperseded
	}
	if err := j.markFailedLocked(id, reason); err != nil {
		return nil, err
	}

	job.AttemptCount++
	if job.AttemptCount >= maxAttempts {
		return nil, nil
	}
	return j.enqueueRetryLocked(job, availableAt)
}

func (j *jobStore) HasActiveJob(subjectKey string) (bool, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.activeLocked(subjectKey)
}

func (j *jobStore) activeLocked(subjectKey string) (bool, error) {
	count, err := j.s.db.Count(&models.AnalysisJob{}, badgerhold.
		Where("SubjectKey").Eq(subjectKey).
		And("Status").In(models.JobStatusPending, models.JobStatusProcessing))
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs for '%s': %w", subjectKey, err)
	}
	return count > 0, nil
}

func (j *jobStore) RequestCancel(subjectKey string) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	var jobs []models.AnalysisJob
	err := j.s.db.Find(&jobs, badgerhold.
		Where("SubjectKey").Eq(subjectKey).
		And("Status").In(models.JobStatusPending, models.JobStatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to find jobs for '%s': %w", subjectKey, err)
	}

	for i := range jobs {
		job := &jobs[i]
		switch job.Status {
		case models.JobStatusPending:
			if err := j.markFailedLocked(job.ID, models.ErrJobCancelled.Error()); err != nil {
				return err
			}
		case models.JobStatusProcessing:
			// The owning worker observes the flag at its next phase
			// boundary and aborts cleanly.
			job.CancelRequested = true
			job.UpdatedAt = time.Now().UTC()
			if err := j.s.db.Update(job.ID, job); err != nil {
				return fmt.Errorf("failed to flag job %s for cancel: %w", job.ID, err)
			}
		}
	}
	return nil
}

func (j *jobStore) ListStale(cutoff time.Time) ([]*models.AnalysisJob, error) {
	var jobs []models.AnalysisJob
	if err := j.s.db.Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return nil, fmt.Errorf("failed to scan processing jobs: %w", err)
	}

	var stale []*models.AnalysisJob
	for i := range jobs {
		if jobs[i].UpdatedAt.Before(cutoff) {
			stale = append(stale, &jobs[i])
		}
	}
	return stale, nil
}

func (j *jobStore) ResetAbandoned() (int, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	var jobs []models.AnalysisJob
	if err := j.s.db.Find(&jobs, badgerhold.Where("Status").Eq(models.JobStatusProcessing)); err != nil {
		return 0, fmt.Errorf("failed to scan processing jobs: %w", err)
	}

	for i := range jobs {
		if err := j.markFailedLocked(jobs[i].ID, "abandoned on restart"); err != nil {
			return i, err
		}
	}
	return len(jobs), nil
}

func (j *jobStore) PurgeTerminal(cutoff time.Time) (int, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	var jobs []models.AnalysisJob
	err := j.s.db.Find(&jobs, badgerhold.
		Where("Status").In(models.JobStatusCompleted, models.JobStatusFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to scan terminal jobs: %w", err)
	}

	purged := 0
	for i := range jobs {
		if !jobs[i].CompletedAt.Before(cutoff) {
			continue
		}
		if err := j.s.db.Delete(jobs[i].ID, models.AnalysisJob{}); err != nil && err != badgerhold.ErrNotFound {
			return purged, fmt.Errorf("failed to purge job %s: %w", jobs[i].ID, err)
		}
		switch jobs[i].Status {
		case models.JobStatusCompleted:
			j.s.counters.Completed--
		case models.JobStatusFailed:
			j.s.counters.Failed--
		}
		purged++
	}
	return purged, nil
}

func (j *jobStore) List(status string, limit int) ([]*models.AnalysisJob, error) {
	var jobs []models.AnalysisJob
	var err error
	if status == "" {
		err = j.s.db.Find(&jobs, nil)
	} else {
		err = j.s.db.Find(&jobs, badgerhold.Where("Status").Eq(status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	result := make([]*models.AnalysisJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (j *jobStore) Stats() (*models.QueueStats, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	stats := j.s.counters
	return &stats, nil
}

func (j *jobStore) adjustLocked(from, to string) {
	switch from {
	case models.JobStatusPending:
		j.s.counters.Pending--
	case models.JobStatusProcessing:
		j.s.counters.Processing--
	}
	switch to {
	case models.JobStatusCompleted:
		j.s.counters.Completed++
	case models.JobStatusFailed:
		j.s.counters.Failed++
	}
}
