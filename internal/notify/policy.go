// Package notify owns the threshold-crossing notification policy and its
// dedup state. Dedup records persist with the notification store, so a
// restart never re-alerts an already-notified crossing.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/fusion"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// Policy evaluates completed analyses against the notification thresholds.
type Policy struct {
	store           interfaces.NotificationStore
	sender          interfaces.NotificationSender
	logger          *common.Logger
	notifyThreshold float64
	strongThreshold float64
}

// NewPolicy creates the notification policy.
func NewPolicy(store interfaces.NotificationStore, sender interfaces.NotificationSender, logger *common.Logger, notifyThreshold, strongThreshold int) *Policy {
	return &Policy{
		store:           store,
		sender:          sender,
		logger:          logger,
		notifyThreshold: float64(notifyThreshold),
		strongThreshold: float64(strongThreshold),
	}
}

// Evaluate checks a completed analysis against the threshold and records
// plus delivers at most one notification per crossing. Delivery failure is
// logged and swallowed: it never fails the pipeline. Returns the created
// notification, or nil when the score is below threshold or the crossing
// was already notified.
func (p *Policy) Evaluate(ctx context.Context, analysis *models.StockAnalysis) (*models.Notification, error) {
	score := fusion.ResolvePrimaryScore(analysis)
	if score == nil || *score < p.notifyThreshold {
		return nil, nil
	}

	now := time.Now().UTC()
	notification := &models.Notification{
		SubjectKey: analysis.SubjectKey,
		Score:      *score,
		Message:    p.message(analysis, *score),
		DedupKey:   models.NotificationDedupKey(analysis.SubjectKey, *score, now),
		CreatedAt:  now,
	}

	saved, err := p.store.SaveIfNew(notification)
	if err != nil {
		return nil, fmt.Errorf("failed to record notification for '%s': %w", analysis.SubjectKey, err)
	}
	if !saved {
		p.logger.Debug().
			Str("subject", analysis.SubjectKey).
			Str("dedup_key", notification.DedupKey).
			Msg("Crossing already notified, skipping")
		return nil, nil
	}

	payload := &interfaces.NotificationPayload{
		Ticker:          analysis.SubjectKey,
		CompanyName:     analysis.CompanyName,
		Recommendation:  string(analysis.Recommendation),
		CurrentPrice:    analysis.CurrentPrice,
		ConfidenceScore: score,
	}
	if err := p.sender.Send(ctx, payload); err != nil {
		p.logger.Warn().Err(err).
			Str("subject", analysis.SubjectKey).
			Msg("Notification delivery failed")
	}

	p.logger.Info().
		Str("subject", analysis.SubjectKey).
		Float64("score", *score).
		Msg("Notification sent")
	return notification, nil
}

func (p *Policy) message(analysis *models.StockAnalysis, score float64) string {
	label := "signal"
	if score >= p.strongThreshold {
		label = "strong signal"
	}
	return fmt.Sprintf("%s crossed into %s territory: score %.0f, recommendation %s",
		analysis.SubjectKey, label, score, analysis.Recommendation)
}
