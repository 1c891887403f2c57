package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// fakeStore is an in-memory NotificationStore keyed on dedup key.
type fakeStore struct {
	byDedup map[string]*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{byDedup: make(map[string]*models.Notification)}
}

func (f *fakeStore) SaveIfNew(n *models.Notification) (bool, error) {
	if _, ok := f.byDedup[n.DedupKey]; ok {
		return false, nil
	}
	f.byDedup[n.DedupKey] = n
	return true, nil
}

func (f *fakeStore) List(limit int) ([]*models.Notification, error) {
	var all []*models.Notification
	for _, n := range f.byDedup {
		all = append(all, n)
	}
	return all, nil
}

func (f *fakeStore) MarkRead(id string) error { return nil }

func (f *fakeStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	purged := 0
	for key, n := range f.byDedup {
		if n.CreatedAt.Before(cutoff) {
			delete(f.byDedup, key)
			purged++
		}
	}
	return purged, nil
}

// fakeSender records deliveries and optionally fails.
type fakeSender struct {
	sent []*interfaces.NotificationPayload
	err  error
}

func (f *fakeSender) Send(_ context.Context, payload *interfaces.NotificationPayload) error {
	f.sent = append(f.sent, payload)
	return f.err
}

func completed(subject string, score float64) *models.StockAnalysis {
	return &models.StockAnalysis{
		SubjectKey:      subject,
		CompanyName:     subject + " Corp",
		Status:          models.AnalysisStatusCompleted,
		IntegratedScore: &score,
		Recommendation:  models.RecommendationBuy,
		CurrentPrice:    100,
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	policy := NewPolicy(store, sender, common.NewSilentLogger(), 75, 85)

	n, err := policy.Evaluate(context.Background(), completed("AAPL", 74.9))
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, sender.sent)
}

func TestEvaluateCrossingNotifiesOnce(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	policy := NewPolicy(store, sender, common.NewSilentLogger(), 75, 85)

	n, err := policy.Evaluate(context.Background(), completed("AAPL", 80))
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "AAPL", n.SubjectKey)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "BUY", sender.sent[0].Recommendation)

	// A re-confirming completion in the same score decile on the same day
	// must not re-notify.
	n, err = policy.Evaluate(context.Background(), completed("AAPL", 82))
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Len(t, sender.sent, 1)
}

func TestEvaluateNoScoreResolvable(t *testing.T) {
	policy := NewPolicy(newFakeStore(), &fakeSender{}, common.NewSilentLogger(), 75, 85)

	n, err := policy.Evaluate(context.Background(), &models.StockAnalysis{
		SubjectKey: "AAPL",
		Status:     models.AnalysisStatusCompleted,
	})
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestEvaluateDeliveryFailureNonFatal(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{err: errors.New("webhook down")}
	policy := NewPolicy(store, sender, common.NewSilentLogger(), 75, 85)

	n, err := policy.Evaluate(context.Background(), completed("AAPL", 80))
	require.NoError(t, err, "delivery failure must not propagate")
	require.NotNil(t, n)
	assert.Len(t, store.byDedup, 1, "record is kept even when delivery fails")
}

func TestEvaluateStrongSignalMessage(t *testing.T) {
	store := newFakeStore()
	policy := NewPolicy(store, &fakeSender{}, common.NewSilentLogger(), 75, 85)

	n, err := policy.Evaluate(context.Background(), completed("AAPL", 90))
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Contains(t, n.Message, "strong signal")
}
