package badgerdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func TestNotificationPurgeOlderThan(t *testing.T) {
	store := newTestStore(t)
	notifications := store.Notifications()

	now := time.Now().UTC()
	old := &models.Notification{
		SubjectKey: "AAPL",
		Score:      81,
		Message:    "strong signal",
		DedupKey:   models.NotificationDedupKey("AAPL", 81, now.Add(-40*24*time.Hour)),
		CreatedAt:  now.Add(-40 * 24 * time.Hour),
	}
	saved, err := notifications.SaveIfNew(old)
	require.NoError(t, err)
	require.True(t, saved)

	fresh := &models.Notification{
		SubjectKey: "MSFT",
		Score:      78,
		Message:    "signal",
		DedupKey:   models.NotificationDedupKey("MSFT", 78, now),
	}
	saved, err = notifications.SaveIfNew(fresh)
	require.NoError(t, err)
	require.True(t, saved)

	purged, err := notifications.PurgeOlderThan(now.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	remaining, err := notifications.List(10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "MSFT", remaining[0].SubjectKey)

	// Purging the record retires its dedup key, so the same crossing can
	// notify again.
	saved, err = notifications.SaveIfNew(&models.Notification{
		SubjectKey: "AAPL",
		Score:      81,
		Message:    "strong signal",
		DedupKey:   old.DedupKey,
	})
	require.NoError(t, err)
	assert.True(t, saved)
}
