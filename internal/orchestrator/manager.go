// Package orchestrator drives the asynchronous analysis pipeline: queue
// admission, the worker pool, the phase state machine, the stale-job
// reaper and event broadcast.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
	"github.com/shaharAka/Shaharstocks-sub005/internal/notify"
)

// Manager runs the worker pool and the reaper loop over the job queue.
type Manager struct {
	storage  interfaces.StorageManager
	facts    interfaces.FactSource
	notifier *notify.Policy
	logger   *common.Logger
	hub      *Hub

	workers      int
	maxAttempts  int
	retryBackoff time.Duration
	backoffCap   time.Duration
	staleTimeout time.Duration
	reaperEvery  time.Duration
	macroBlend   float64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates the pipeline orchestrator.
func NewManager(
	storage interfaces.StorageManager,
	facts interfaces.FactSource,
	notifier *notify.Policy,
	logger *common.Logger,
	config *common.Config,
) *Manager {
	return &Manager{
		storage:      storage,
		facts:        facts,
		notifier:     notifier,
		logger:       logger,
		hub:          NewHub(logger),
		workers:      config.Pipeline.GetWorkers(),
		maxAttempts:  config.Pipeline.GetMaxAttempts(),
		retryBackoff: config.Pipeline.GetRetryBackoff(),
		backoffCap:   config.Pipeline.GetBackoffCap(),
		staleTimeout: config.Pipeline.GetStaleTimeout(),
		reaperEvery:  config.Pipeline.GetReaperInterval(),
		macroBlend:   config.Scoring.GetMacroBlend(),
	}
}

// safeGo launches a goroutine with panic recovery and logging.
func (m *Manager) safeGo(name string, fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in orchestrator goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the hub, the reaper and the worker pool. Safe to call
// multiple times — stops any existing loops before starting.
func (m *Manager) Start() {
	if m.cancel != nil {
		m.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	// Jobs left in processing by a previous crash are failed up front so
	// the single-flight invariant starts from a clean slate.
	if count, err := m.storage.Jobs().ResetAbandoned(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to reset abandoned jobs")
	} else if count > 0 {
		m.logger.Info().Int("count", count).Msg("Failed abandoned jobs from previous run")
	}

	m.safeGo("websocket-hub", func() { m.hub.Run() })
	m.safeGo("reaper", func() { m.reapLoop(ctx) })

	for i := 0; i < m.workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		m.safeGo(name, func() { m.workLoop(ctx) })
	}

	m.logger.Info().
		Int("workers", m.workers).
		Dur("stale_timeout", m.staleTimeout).
		Msg("Orchestrator started")
}

// Stop cancels all loops and waits for completion.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.hub.Stop()
	m.wg.Wait()
	m.logger.Info().Msg("Orchestrator stopped")
}

// Hub returns the WebSocket hub for handler registration.
func (m *Manager) Hub() *Hub {
	return m.hub
}

// EnqueueAnalysis admits an analysis request for a subject. A duplicate
// in-flight request surfaces models.ErrDuplicateInFlight, which callers
// treat as an idempotent no-op.
func (m *Manager) EnqueueAnalysis(subjectKey, reason string, priority models.JobPriority) (*models.AnalysisJob, error) {
	job, err := m.storage.Jobs().Enqueue(subjectKey, reason, priority)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateInFlight) {
			m.logger.Debug().Str("subject", subjectKey).Msg("Analysis already in flight")
		}
		return nil, err
	}

	m.logger.Info().
		Str("job_id", job.ID).
		Str("subject", subjectKey).
		Str("reason", reason).
		Str("priority", priority.String()).
		Msg("Analysis enqueued")
	m.broadcastJob("job_queued", job)
	return job, nil
}

// broadcastJob emits a job event with the current queue depth.
func (m *Manager) broadcastJob(eventType string, job *models.AnalysisJob) {
	depth := 0
	if stats, err := m.storage.Jobs().Stats(); err == nil {
		depth = stats.Pending
	}
	m.hub.BroadcastJobEvent(models.JobEvent{
		Type:       eventType,
		Job:        job,
		Timestamp:  time.Now().UTC(),
		QueueDepth: depth,
	})
}

// workLoop continuously dequeues and executes jobs.
func (m *Manager) workLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.storage.Jobs().DequeueNext()
		if err != nil {
			if !errors.Is(err, models.ErrQueueEmpty) {
				m.logger.Warn().Err(err).Msg("Worker: dequeue error")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
				continue
			}
		}

		m.broadcastJob("job_started", job)
		m.runJob(ctx, job)
	}
}

// retryDelay doubles the base backoff per prior attempt, capped.
func (m *Manager) retryDelay(attemptCount int) time.Duration {
	delay := m.retryBackoff
	for i := 0; i < attemptCount; i++ {
		delay *= 2
		if delay >= m.backoffCap {
			return m.backoffCap
		}
	}
	return delay
}

// failRetryable terminally fails the job and schedules its successor
// while attempts remain.
func (m *Manager) failRetryable(job *models.AnalysisJob, cause error) {
	availableAt := time.Now().UTC().Add(m.retryDelay(job.AttemptCount))
	retry, err := m.storage.Jobs().FailAndRetry(job.ID, cause.Error(), m.maxAttempts, availableAt)
	if err != nil {
		if errors.Is(err, models.ErrJobSuperseded) {
			m.logger.Debug().Str("job_id", job.ID).Msg("Job already terminal, no retry scheduled")
			return
		}
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job failure")
		return
	}

	job.Status = models.JobStatusFailed
	job.FailureReason = cause.Error()
	m.broadcastJob("job_failed", job)

	if retry != nil {
		m.logger.Info().
			Str("job_id", job.ID).
			Str("retry_id", retry.ID).
			Int("attempt", retry.AttemptCount).
			Time("available_at", retry.AvailableAt).
			Msg("Retry scheduled")
		m.broadcastJob("job_queued", retry)
	} else {
		m.logger.Warn().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Err(cause).
			Msg("Job failed, retries exhausted")
	}
}

// failFatal terminally fails the job with no retry. Used for cancellation
// and for invariant violations.
func (m *Manager) failFatal(job *models.AnalysisJob, reason string) {
	if err := m.storage.Jobs().MarkFailed(job.ID, reason); err != nil {
		m.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job failure")
	}
	job.Status = models.JobStatusFailed
	job.FailureReason = reason
	m.broadcastJob("job_failed", job)
}
