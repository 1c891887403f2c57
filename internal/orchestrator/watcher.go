package orchestrator

import (
	"context"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// reapLoop periodically fails processing jobs whose phase has not moved
// within the stale timeout. This guards against worker crashes mid-job:
// the abandoned job is failed and retried with backoff like any other
// transient failure.
func (m *Manager) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(m.reaperEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapStale()
		}
	}
}

func (m *Manager) reapStale() {
	cutoff := time.Now().UTC().Add(-m.staleTimeout)
	stale, err := m.storage.Jobs().ListStale(cutoff)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Reaper: failed to list stale jobs")
		return
	}

	for _, job := range stale {
		m.logger.Warn().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Str("phase", job.Phase).
			Time("last_update", job.UpdatedAt).
			Msg("Reaping stale job")

		availableAt := time.Now().UTC().Add(m.retryDelay(job.AttemptCount))
		retry, err := m.storage.Jobs().FailAndRetry(job.ID, "stale job timeout", m.maxAttempts, availableAt)
		if err != nil {
			m.logger.Error().Err(err).Str("job_id", job.ID).Msg("Reaper: failed to fail stale job")
			continue
		}

		job.Status = models.JobStatusFailed
		job.FailureReason = "stale job timeout"
		m.broadcastJob("job_failed", job)
		if retry != nil {
			m.broadcastJob("job_queued", retry)
		}
	}
}
