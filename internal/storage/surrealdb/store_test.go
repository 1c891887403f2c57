package surrealdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
	tcommon "github.com/shaharAka/Shaharstocks-sub005/tests/common"
)

// testConfig points at the shared SurrealDB container with a unique
// database name per test for isolation.
func testConfig(t *testing.T) *common.Config {
	t.Helper()
	sc := tcommon.StartSurrealDB(t)

	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	config := common.NewDefaultConfig()
	config.Environment = "test"
	config.Storage.Engine = "surrealdb"
	config.Storage.SurrealDB = common.SurrealDBConfig{
		Address:   sc.Address(),
		Namespace: "signals_test",
		Database:  fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000),
		Username:  "root",
		Password:  "root",
	}
	return config
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(testConfig(t), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnqueueSingleFlight(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Jobs().Enqueue("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, first.Status)

	_, err = store.Jobs().Enqueue("AAPL", "ingest", models.PriorityHigh)
	assert.ErrorIs(t, err, models.ErrDuplicateInFlight)

	_, err = store.Jobs().Enqueue("MSFT", "ingest", models.PriorityNormal)
	assert.NoError(t, err, "other subjects are unaffected")
}

func TestDequeueOrderPriorityThenAge(t *testing.T) {
	store := newTestStore(t)

	older, err := store.Jobs().Enqueue("AAA", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = store.Jobs().Enqueue("BBB", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	urgent, err := store.Jobs().Enqueue("CCC", "manual", models.PriorityHigh)
	require.NoError(t, err)

	claimed, err := store.Jobs().DequeueNext()
	require.NoError(t, err)
	assert.Equal(t, urgent.ID, claimed.ID, "highest priority first")
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)

	claimed, err = store.Jobs().DequeueNext()
	require.NoError(t, err)
	assert.Equal(t, older.ID, claimed.ID, "oldest within a priority tier")
}

func TestDequeueEmptyQueue(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Jobs().DequeueNext()
	assert.ErrorIs(t, err, models.ErrQueueEmpty)
}

func TestFailAndRetrySchedulesSuccessor(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Jobs().Enqueue("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	_, err = store.Jobs().DequeueNext()
	require.NoError(t, err)

	retry, err := store.Jobs().FailAndRetry(job.ID, "upstream timeout", 3, time.Now().UTC().Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, models.PriorityLow, retry.Priority)
	assert.Equal(t, 1, retry.AttemptCount)

	failed, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, failed.Status)
	assert.Equal(t, "upstream timeout", failed.FailureReason)

	// The retry is backoff-delayed, so the queue looks empty right now.
	_, err = store.Jobs().DequeueNext()
	assert.ErrorIs(t, err, models.ErrQueueEmpty)
}

func TestReapedJobNotResurrectedBySlowWorker(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Jobs().Enqueue("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	workerCopy, err := store.Jobs().DequeueNext()
	require.NoError(t, err)
	require.Equal(t, job.ID, workerCopy.ID)

	// The reaper fails the stale job and schedules its retry.
	retry, err := store.Jobs().FailAndRetry(job.ID, "stale job timeout", 3, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, retry)

	// The slow worker's phase write and completion are both refused.
	workerCopy.Phase = models.PhaseFetchingData
	assert.ErrorIs(t, store.Jobs().Update(workerCopy), models.ErrJobSuperseded)
	assert.ErrorIs(t, store.Jobs().MarkCompleted(job.ID), models.ErrJobSuperseded)

	stored, err := store.Jobs().Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status, "terminal status must stick")

	// A second failure report does not schedule a second retry.
	dup, err := store.Jobs().FailAndRetry(job.ID, "fetch failed", 3, time.Now().UTC())
	assert.ErrorIs(t, err, models.ErrJobSuperseded)
	assert.Nil(t, dup)

	stats, err := store.Jobs().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending, "only the reaper's retry remains active")
	assert.Zero(t, stats.Processing)
	assert.Zero(t, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
}

func TestRequestCancelPendingAndProcessing(t *testing.T) {
	store := newTestStore(t)

	pending, err := store.Jobs().Enqueue("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, store.Jobs().RequestCancel("AAPL"))

	got, err := store.Jobs().Get(pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "cancelled", got.FailureReason)

	inFlight, err := store.Jobs().Enqueue("MSFT", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	_, err = store.Jobs().DequeueNext()
	require.NoError(t, err)
	require.NoError(t, store.Jobs().RequestCancel("MSFT"))

	got, err = store.Jobs().Get(inFlight.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status, "processing jobs are only flagged")
	assert.True(t, got.CancelRequested)
}

func TestStatsTrackTransitions(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Jobs().Enqueue("AAPL", "ingest", models.PriorityNormal)
	require.NoError(t, err)
	_, err = store.Jobs().Enqueue("MSFT", "ingest", models.PriorityNormal)
	require.NoError(t, err)

	stats, err := store.Jobs().Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)

	_, err = store.Jobs().DequeueNext()
	require.NoError(t, err)
	require.NoError(t, store.Jobs().MarkCompleted(job.ID))

	stats, err = store.Jobs().Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Processing)
	assert.Equal(t, 1, stats.Completed)
}

func TestSubjectAndAnalysisRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Subjects().Upsert(&models.SubjectEntry{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc",
		Source:      "sec-form4",
	}))

	entry, err := store.Subjects().Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", entry.CompanyName)
	assert.False(t, entry.AddedAt.IsZero())

	score := 81.5
	require.NoError(t, store.Analyses().Save(&models.StockAnalysis{
		SubjectKey:      "AAPL",
		Status:          models.AnalysisStatusCompleted,
		IntegratedScore: &score,
		Recommendation:  models.RecommendationBuy,
	}))

	analysis, err := store.Analyses().Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, analysis.IntegratedScore)
	assert.InDelta(t, 81.5, *analysis.IntegratedScore, 0.001)

	require.NoError(t, store.Analyses().Delete("AAPL"))
	_, err = store.Analyses().Get("AAPL")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationDedup(t *testing.T) {
	store := newTestStore(t)

	key := models.NotificationDedupKey("AAPL", 82, time.Now())
	saved, err := store.Notifications().SaveIfNew(&models.Notification{
		SubjectKey: "AAPL",
		Score:      82,
		DedupKey:   key,
	})
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = store.Notifications().SaveIfNew(&models.Notification{
		SubjectKey: "AAPL",
		Score:      84,
		DedupKey:   key,
	})
	require.NoError(t, err)
	assert.False(t, saved, "same dedup key is dropped")
}

func TestNotificationPurgeOlderThan(t *testing.T) {
	store := newTestStore(t)

	now := time.Now().UTC()
	saved, err := store.Notifications().SaveIfNew(&models.Notification{
		SubjectKey: "AAPL",
		Score:      81,
		DedupKey:   models.NotificationDedupKey("AAPL", 81, now.Add(-40*24*time.Hour)),
		CreatedAt:  now.Add(-40 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, saved)

	saved, err = store.Notifications().SaveIfNew(&models.Notification{
		SubjectKey: "MSFT",
		Score:      78,
		DedupKey:   models.NotificationDedupKey("MSFT", 78, now),
	})
	require.NoError(t, err)
	require.True(t, saved)

	purged, err := store.Notifications().PurgeOlderThan(now.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	remaining, err := store.Notifications().List(10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "MSFT", remaining[0].SubjectKey)
}
