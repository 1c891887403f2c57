package models

import (
	"fmt"
	"time"
)

// Notification records a one-way threshold-crossing event. DedupKey
// prevents duplicate alerts for the same crossing.
type Notification struct {
	ID         string    `json:"id" badgerhold:"key"`
	SubjectKey string    `json:"subject_key"`
	Score      float64   `json:"score"`
	Message    string    `json:"message"`
	DedupKey   string    `json:"dedup_key"`
	CreatedAt  time.Time `json:"created_at"`
	IsRead     bool      `json:"is_read"`
}

// NotificationDedupKey buckets a crossing by subject, score decile and
// calendar day. Two completions for the same subject scoring 80 then 82
// on the same day collapse to one key.
func NotificationDedupKey(subjectKey string, score float64, at time.Time) string {
	return fmt.Sprintf("%s|%d|%s", subjectKey, int(score)/10, at.UTC().Format("2006-01-02"))
}
