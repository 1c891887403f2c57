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

// jobSelectFields aliases job_id to id for struct mapping.
const jobSelectFields = "job_id as id, subject_key, reason, priority, status, phase, substep, " +
	"progress_fraction, created_at, available_at, started_at, completed_at, updated_at, " +
	"failure_reason, attempt_count, cancel_requested"

// jobStore implements interfaces.JobStore on SurrealDB.
type jobStore struct {
	s *Store
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (j *jobStore) seedCounters(ctx context.Context) error {
	type row struct {
		Status string `json:"status"`
		Cnt    int    `json:"cnt"`
	}
	sql := "SELECT status, count() AS cnt FROM analysis_job GROUP BY status"
	results, err := surrealdb.Query[[]row](ctx, j.s.db, sql, nil)
	if err != nil {
		return fmt.Errorf("failed to seed queue counters: %w", err)
	}
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			switch r.Status {
			case models.JobStatusPending:
				j.s.counters.Pending = r.Cnt
			case models.JobStatusProcessing:
				j.s.counters.Processing = r.Cnt
			case models.JobStatusCompleted:
				j.s.counters.Completed = r.Cnt
			case models.JobStatusFailed:
				j.s.counters.Failed = r.Cnt
			}
		}
	}
	return nil
}

func (j *jobStore) upsert(ctx context.Context, job *models.AnalysisJob) error {
	sql := `UPSERT $rid SET
		job_id = $job_id, subject_key = $subject_key, reason = $reason, priority = $priority,
		status = $status, phase = $phase, substep = $substep, progress_fraction = $progress_fraction,
		created_at = $created_at, available_at = $available_at, started_at = $started_at,
		completed_at = $completed_at, updated_at = $updated_at, failure_reason = $failure_reason,
		attempt_count = $attempt_count, cancel_requested = $cancel_requested`
	vars := map[string]any{
		"rid":               surrealmodels.NewRecordID("analysis_job", job.ID),
		"job_id":            job.ID,
		"subject_key":       job.SubjectKey,
		"reason":            job.Reason,
		"priority":          job.Priority,
		"status":            job.Status,
		"phase":             job.Phase,
		"substep":           job.Substep,
		"progress_fraction": job.ProgressFraction,
		"created_at":        job.CreatedAt,
		"available_at":      job.AvailableAt,
		"started_at":        job.StartedAt,
		"completed_at":      job.CompletedAt,
		"updated_at":        job.UpdatedAt,
		"failure_reason":    job.FailureReason,
		"attempt_count":     job.AttemptCount,
		"cancel_requested":  job.CancelRequested,
	}
	if _, err := surrealdb.Query[any](ctx, j.s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	return nil
}

func (j *jobStore) Enqueue(subjectKey, reason string, priority models.JobPriority) (*models.AnalysisJob, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	active, err := j.activeLocked(ctx, subjectKey)
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
	if err := j.upsert(ctx, job); err != nil {
		return nil, err
	}
	j.s.counters.Pending++
	return job, nil
}

func (j *jobStore) DequeueNext() (*models.AnalysisJob, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	selectSQL := "SELECT " + jobSelectFields + " FROM analysis_job " +
		"WHERE status = $pending AND available_at <= $now " +
		"ORDER BY priority DESC, created_at ASC LIMIT 1"
	now := time.Now().UTC()
	vars := map[string]any{"pending": models.JobStatusPending, "now": now}

	candidates, err := surrealdb.Query[[]models.AnalysisJob](ctx, j.s.db, selectSQL, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidate job: %w", err)
	}
	if candidates == nil || len(*candidates) == 0 || len((*candidates)[0].Result) == 0 {
		return nil, models.ErrQueueEmpty
	}
	job := (*candidates)[0].Result[0]

	// Conditional claim: only transition if still pending, so a racing
	// process cannot double-claim.
	updateSQL := `UPDATE $rid SET status = $processing, started_at = $now, updated_at = $now WHERE status = $pending`
	updateVars := map[string]any{
		"rid":        surrealmodels.NewRecordID("analysis_job", job.ID),
		"processing": models.JobStatusProcessing,
		"pending":    models.JobStatusPending,
		"now":        now,
	}
	if _, err := surrealdb.Query[any](ctx, j.s.db, updateSQL, updateVars); err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}

	job.Status = models.JobStatusProcessing
	job.StartedAt = now
	job.UpdatedAt = now
	j.s.counters.Pending--
	j.s.counters.Processing++
	return &job, nil
}

func (j *jobStore) Get(id string) (*models.AnalysisJob, error) {
	return j.get(context.Background(), id)
}

func (j *jobStore) get(ctx context.Context, id string) (*models.AnalysisJob, error) {
	sql := "SELECT " + jobSelectFields + " FROM analysis_job WHERE job_id = $id LIMIT 1"
	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, j.s.db, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, models.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (j *jobStore) Update(job *models.AnalysisJob) error {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	// The stored record is authoritative for state set by other
	// goroutines: a terminal status (the reaper got here first) must not
	// be overwritten, and a cancel flag must survive the worker's own
	// phase updates, which carry a copy read before the flag landed.
	if stored, err := j.get(ctx, job.ID); err == nil {
		if stored.IsTerminal() {
			return models.ErrJobSuperseded
		}
		if stored.CancelRequested {
			job.CancelRequested = true
		}
	}

	job.UpdatedAt = time.Now().UTC()
	return j.upsert(ctx, job)
}

func (j *jobStore) MarkCompleted(id string) error {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	job, err := j.get(ctx, id)
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
	if err := j.upsert(ctx, job); err != nil {
		return err
	}
	j.adjustLocked(prev, models.JobStatusCompleted)
	return nil
}

func (j *jobStore) MarkFailed(id, reason string) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.markFailedLocked(context.Background(), id, reason)
}

func (j *jobStore) markFailedLocked(ctx context.Context, id, reason string) error {
	job, err := j.get(ctx, id)
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
	if err := j.upsert(ctx, job); err != nil {
		return err
	}
	j.adjustLocked(prev, models.JobStatusFailed)
	return nil
}

func (j *jobStore) FailAndRetry(id, reason string, maxAttempts int, availableAt time.Time) (*models.AnalysisJob, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	job, err := j.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		// Already failed (or completed) elsewhere; its retry, if due,
		// was scheduled by whoever got here first.
		return nil, models.ErrJobSuperseded
	}
	if err := j.markFailedLocked(ctx, id, reason); err != nil {
		return nil, err
	}

	job.AttemptCount++
	if job.AttemptCount >= maxAttempts {
		return nil, nil
	}

	now := time.Now().UTC()
	retry := &models.AnalysisJob{
		ID:           newJobID(),
		SubjectKey:   job.SubjectKey,
		Reason:       "retry: " + job.Reason,
		Priority:     models.PriorityLow,
		Status:       models.JobStatusPending,
		CreatedAt:    now,
		AvailableAt:  availableAt,
		UpdatedAt:    now,
		AttemptCount: job.AttemptCount,
	}
	if err := j.upsert(ctx, retry); err != nil {
		return nil, err
	}
	j.s.counters.Pending++
	return retry, nil
}

func (j *jobStore) HasActiveJob(subjectKey string) (bool, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.activeLocked(ctx, subjectKey)
}

func (j *jobStore) activeLocked(ctx context.Context, subjectKey string) (bool, error) {
	sql := "SELECT count() AS cnt FROM analysis_job WHERE subject_key = $subject AND status IN [$pending, $processing] GROUP ALL"
	vars := map[string]any{
		"subject":    subjectKey,
		"pending":    models.JobStatusPending,
		"processing": models.JobStatusProcessing,
	}

	type countResult struct {
		Cnt int `json:"cnt"`
	}
	results, err := surrealdb.Query[[]countResult](ctx, j.s.db, sql, vars)
	if err != nil {
		return false, fmt.Errorf("failed to check active jobs for '%s': %w", subjectKey, err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Cnt > 0, nil
	}
	return false, nil
}

func (j *jobStore) RequestCancel(subjectKey string) error {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	sql := "SELECT " + jobSelectFields + " FROM analysis_job WHERE subject_key = $subject AND status IN [$pending, $processing]"
	vars := map[string]any{
		"subject":    subjectKey,
		"pending":    models.JobStatusPending,
		"processing": models.JobStatusProcessing,
	}
	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, j.s.db, sql, vars)
	if err != nil {
		return fmt.Errorf("failed to find jobs for '%s': %w", subjectKey, err)
	}
	if results == nil || len(*results) == 0 {
		return nil
	}

	for i := range (*results)[0].Result {
		job := &(*results)[0].Result[i]
		switch job.Status {
		case models.JobStatusPending:
			if err := j.markFailedLocked(ctx, job.ID, models.ErrJobCancelled.Error()); err != nil {
				return err
			}
		case models.JobStatusProcessing:
			job.CancelRequested = true
			job.UpdatedAt = time.Now().UTC()
			if err := j.upsert(ctx, job); err != nil {
				return err
			}
		}
	}
	return nil
}

func (j *jobStore) ListStale(cutoff time.Time) ([]*models.AnalysisJob, error) {
	sql := "SELECT " + jobSelectFields + " FROM analysis_job WHERE status = $processing AND updated_at < $cutoff"
	vars := map[string]any{"processing": models.JobStatusProcessing, "cutoff": cutoff}
	return j.queryJobs(context.Background(), sql, vars)
}

func (j *jobStore) ResetAbandoned() (int, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	sql := "SELECT " + jobSelectFields + " FROM analysis_job WHERE status = $processing"
	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, j.s.db, sql,
		map[string]any{"processing": models.JobStatusProcessing})
	if err != nil {
		return 0, fmt.Errorf("failed to scan processing jobs: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return 0, nil
	}

	count := 0
	for i := range (*results)[0].Result {
		if err := j.markFailedLocked(ctx, (*results)[0].Result[i].ID, "abandoned on restart"); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (j *jobStore) PurgeTerminal(cutoff time.Time) (int, error) {
	ctx := context.Background()
	j.s.mu.Lock()
	defer j.s.mu.Unlock()

	countSQL := "SELECT status, count() AS cnt FROM analysis_job WHERE status IN [$completed, $failed] AND completed_at < $cutoff GROUP BY status"
	vars := map[string]any{
		"completed": models.JobStatusCompleted,
		"failed":    models.JobStatusFailed,
		"cutoff":    cutoff,
	}

	type row struct {
		Status string `json:"status"`
		Cnt    int    `json:"cnt"`
	}
	counts, err := surrealdb.Query[[]row](ctx, j.s.db, countSQL, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to count terminal jobs: %w", err)
	}

	purged := 0
	if counts != nil && len(*counts) > 0 {
		for _, r := range (*counts)[0].Result {
			switch r.Status {
			case models.JobStatusCompleted:
				j.s.counters.Completed -= r.Cnt
			case models.JobStatusFailed:
				j.s.counters.Failed -= r.Cnt
			}
			purged += r.Cnt
		}
	}

	deleteSQL := "DELETE FROM analysis_job WHERE status IN [$completed, $failed] AND completed_at < $cutoff"
	if _, err := surrealdb.Query[any](ctx, j.s.db, deleteSQL, vars); err != nil {
		return 0, fmt.Errorf("failed to purge terminal jobs: %w", err)
	}
	return purged, nil
}

func (j *jobStore) List(status string, limit int) ([]*models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx := context.Background()
	if status == "" {
		sql := "SELECT " + jobSelectFields + " FROM analysis_job ORDER BY created_at DESC LIMIT $limit"
		return j.queryJobs(ctx, sql, map[string]any{"limit": limit})
	}
	sql := "SELECT " + jobSelectFields + " FROM analysis_job WHERE status = $status ORDER BY created_at DESC LIMIT $limit"
	return j.queryJobs(ctx, sql, map[string]any{"status": status, "limit": limit})
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

func (j *jobStore) queryJobs(ctx context.Context, sql string, vars map[string]any) ([]*models.AnalysisJob, error) {
	results, err := surrealdb.Query[[]models.AnalysisJob](ctx, j.s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	var jobs []*models.AnalysisJob
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			jobs = append(jobs, &(*results)[0].Result[i])
		}
	}
	return jobs, nil
}
