package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
	"github.com/shaharAka/Shaharstocks-sub005/internal/notify"
	"github.com/shaharAka/Shaharstocks-sub005/internal/storage/badgerdb"
)

func f(v float64) *float64 { return &v }

// fakeFacts is a scriptable FactSource.
type fakeFacts struct {
	mu       sync.Mutex
	factsErr error
	macroErr error
	metrics  map[string]*float64
	gate     chan struct{} // when set, FetchFacts blocks until closed
}

func (s *fakeFacts) FetchFacts(ctx context.Context, ticker string) (*models.FactSet, error) {
	s.mu.Lock()
	gate := s.gate
	err := s.factsErr
	metrics := s.metrics
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &models.FactSet{
		Ticker:       ticker,
		CompanyName:  ticker + " Corp",
		CurrentPrice: 100,
		PriceChange:  1.5,
		Metrics:      metrics,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

func (s *fakeFacts) FetchMacro(ctx context.Context, ticker string) (*models.MacroFacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.macroErr != nil {
		return nil, s.macroErr
	}
	return &models.MacroFacts{
		Ticker: ticker,
		Stance: "buy",
		Metrics: map[string]*float64{
			"sector_momentum":  f(0.1),
			"market_breadth":   f(0.7),
			"rate_environment": f(0.015),
		},
	}, nil
}

type noopSender struct{}

func (noopSender) Send(context.Context, *interfaces.NotificationPayload) error { return nil }

// excellentMetrics lands every registered metric in the excellent bucket.
func excellentMetrics() map[string]*float64 {
	return map[string]*float64{
		"pe_ratio":              f(8),
		"revenue_growth":        f(0.25),
		"debt_to_equity":        f(0.2),
		"fcf_margin":            f(0.2),
		"price_vs_sma200":       f(0.12),
		"momentum_3m":           f(0.2),
		"volume_trend":          f(0.3),
		"net_buy_ratio":         f(0.9),
		"cluster_buy_count":     f(4),
		"officer_participation": f(0.6),
		"sentiment_score":       f(0.7),
		"coverage_volume":       f(25),
		"sector_momentum":       f(0.1),
		"market_breadth":        f(0.7),
		"rate_environment":      f(0.015),
	}
}

func newTestManager(t *testing.T, facts *fakeFacts) (*Manager, interfaces.StorageManager) {
	t.Helper()
	logger := common.NewSilentLogger()
	store, err := badgerdb.NewStore(logger, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	config := common.NewDefaultConfig()
	config.Pipeline.Workers = 1
	config.Pipeline.RetryBackoff = "10ms"
	config.Pipeline.StaleTimeout = "50ms"
	config.Pipeline.ReaperInterval = "20ms"

	policy := notify.NewPolicy(store.Notifications(), noopSender{}, logger, 75, 85)
	return NewManager(store, facts, policy, logger, config), store
}

func TestRunJobCompletesPipeline(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	job, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	m.runJob(context.Background(), claimed)

	done, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, done.Status)
	assert.Equal(t, models.PhaseComplete, done.Phase)

	analysis, err := store.Analyses().Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, analysis.Status)
	assert.Equal(t, models.RecommendationBuy, analysis.Recommendation)
	require.NotNil(t, analysis.IntegratedScore)
	assert.InDelta(t, 100, *analysis.IntegratedScore, 0.001)
	require.NotNil(t, analysis.Scorecard)
	assert.Equal(t, 100, analysis.Scorecard.GlobalScore)

	entry, err := store.Subjects().Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "BUY", entry.LastStance)
	require.NotNil(t, entry.LastScore)

	// A score this high crosses the notification threshold exactly once.
	notifications, err := store.Notifications().List(10)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

func TestRunJobFetchFailureSchedulesRetry(t *testing.T) {
	facts := &fakeFacts{factsErr: errors.New("upstream timeout")}
	m, store := newTestManager(t, facts)

	job, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	m.runJob(context.Background(), claimed)

	failed, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, failed.Status)
	assert.Contains(t, failed.FailureReason, "upstream timeout")

	// A fresh low-priority job for the same subject is pending.
	pending, err := store.Jobs().List(models.JobStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "AAPL", pending[0].SubjectKey)
	assert.Equal(t, models.PriorityLow, pending[0].Priority)
	assert.Equal(t, 1, pending[0].AttemptCount)

	analysis, err := store.Analyses().Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, analysis.Status)
	assert.Nil(t, analysis.IntegratedScore, "no partial result persisted")
}

func TestRunJobMacroUnavailableFallsBackToMicro(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics(), macroErr: models.ErrDataUnavailable}
	m, store := newTestManager(t, facts)

	_, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	m.runJob(context.Background(), claimed)

	analysis, err := store.Analyses().Get("AAPL")
	require.NoError(t, err)
	assert.Nil(t, analysis.MacroScore)
	require.NotNil(t, analysis.IntegratedScore)
	require.NotNil(t, analysis.ConfidenceScore)
	assert.InDelta(t, *analysis.ConfidenceScore, *analysis.IntegratedScore, 0.001,
		"without macro the integrated score equals the micro score")
}

func TestRunJobCancelObservedAtPhaseBoundary(t *testing.T) {
	gate := make(chan struct{})
	facts := &fakeFacts{metrics: excellentMetrics(), gate: gate}
	m, store := newTestManager(t, facts)

	job, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.runJob(context.Background(), claimed)
		close(done)
	}()

	// Cancel while the fetch is in flight, then release it. The worker
	// observes the flag at the next phase boundary.
	require.NoError(t, store.Jobs().RequestCancel("AAPL"))
	close(gate)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}

	got, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "cancelled", got.FailureReason)

	// Cancellation is not retried.
	pending, err := store.Jobs().List(models.JobStatusPending, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAdvanceRejectsSkippedPhase(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	_, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	err = m.advance(claimed, models.PhaseGeneratingPlaybook, "skip ahead", 0.8)
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition)

	require.NoError(t, m.advance(claimed, models.PhaseFetchingData, "fetching facts", 0.1))
	err = m.advance(claimed, models.PhaseFetchingData, "again", 0.1)
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition, "no repeats")
	err = m.advance(claimed, models.PhaseComplete, "jump", 1)
	assert.ErrorIs(t, err, models.ErrInvalidPhaseTransition, "no skips")
}

func TestReapStaleJobRetries(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	job, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	_, err = store.Jobs().DequeueNext()
	require.NoError(t, err)

	// Let the claim age past the 50ms stale timeout with no phase update.
	time.Sleep(80 * time.Millisecond)
	m.reapStale()

	got, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "stale job timeout", got.FailureReason)

	pending, err := store.Jobs().List(models.JobStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "abandoned work is retried")
	assert.Equal(t, "AAPL", pending[0].SubjectKey)
}

func TestRunJobAbandonsAfterStaleReap(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	job, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)

	// The reaper fails the job and schedules its retry while the worker
	// still holds the claim.
	retry, err := store.Jobs().FailAndRetry(job.ID, "stale job timeout", 3, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, retry)

	// The worker runs to the end anyway; every write is refused and the
	// run is abandoned without completing, re-failing or double-retrying.
	m.runJob(context.Background(), claimed)

	got, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "stale job timeout", got.FailureReason)

	pending, err := store.Jobs().List(models.JobStatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "only the reaper's retry is queued")
	assert.Equal(t, retry.ID, pending[0].ID)

	stats, err := store.Jobs().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Zero(t, stats.Processing)
	assert.Zero(t, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
}

func TestStartStopProcessesQueue(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	m.Start()
	defer m.Stop()

	_, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityHigh)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		stats, err := store.Jobs().Stats()
		return err == nil && stats.Completed == 1 && stats.Pending == 0 && stats.Processing == 0
	}, 10*time.Second, 50*time.Millisecond)

	analysis, err := store.Analyses().Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, analysis.Status)
}

func TestEnqueueDuplicateIsIdempotentNoop(t *testing.T) {
	facts := &fakeFacts{metrics: excellentMetrics()}
	m, store := newTestManager(t, facts)

	_, err := m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	_, err = m.EnqueueAnalysis("AAPL", "ingest", models.PriorityNormal)
	assert.ErrorIs(t, err, models.ErrDuplicateInFlight)

	stats, err := store.Jobs().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
}
