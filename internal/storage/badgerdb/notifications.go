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

// notificationStore implements interfaces.NotificationStore. Dedup state
// is persisted with the records, so it survives restarts.
type notificationStore struct {
	s *Store
}

func (n *notificationStore) SaveIfNew(notification *models.Notification) (bool, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	count, err := n.s.db.Count(&models.Notification{},
		badgerhold.Where("DedupKey").Eq(notification.DedupKey))
	if err != nil {
		return false, fmt.Errorf("failed to check notification dedup: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if notification.ID == "" {
		notification.ID = "ntf_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if err := n.s.db.Insert(notification.ID, notification); err != nil {
		return false, fmt.Errorf("failed to save notification: %w", err)
	}
	return true, nil
}

func (n *notificationStore) List(limit int) ([]*models.Notification, error) {
	var all []models.Notification
	if err := n.s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	sort.Slice(all, func(a, b int) bool {
		return all[a].CreatedAt.After(all[b].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	result := make([]*models.Notification, len(all))
	for i := range all {
		result[i] = &all[i]
	}
	return result, nil
}

func (n *notificationStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()

	var old []models.Notification
	if err := n.s.db.Find(&old, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to scan old notifications: %w", err)
	}

	purged := 0
	for i := range old {
		if err := n.s.db.Delete(old[i].ID, models.Notification{}); err != nil && err != badgerhold.ErrNotFound {
			return purged, fmt.Errorf("failed to purge notification %s: %w", old[i].ID, err)
		}
		purged++
	}
	return purged, nil
}

func (n *notificationStore) MarkRead(id string) error {
	var notification models.Notification
	if err := n.s.db.Get(id, &notification); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	notification.IsRead = true
	if err := n.s.db.Update(id, &notification); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}
