package app

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaharAka/Shaharstocks-sub005/internal/common"
	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
	"github.com/shaharAka/Shaharstocks-sub005/internal/orchestrator"
)

// scheduler runs periodic maintenance: re-analysis of tracked subjects
// whose results have gone stale, and purging of old terminal jobs.
type scheduler struct {
	storage      interfaces.StorageManager
	orchestrator *orchestrator.Manager
	logger       *common.Logger
	cron         *cron.Cron

	rescanAfter    time.Duration
	jobRetention   time.Duration
	notifRetention time.Duration
}

func newScheduler(storage interfaces.StorageManager, manager *orchestrator.Manager, logger *common.Logger, config *common.Config) (*scheduler, error) {
	s := &scheduler{
		storage:        storage,
		orchestrator:   manager,
		logger:         logger,
		cron:           cron.New(),
		rescanAfter:    config.Pipeline.GetRescanInterval(),
		jobRetention:   config.Pipeline.GetJobRetention(),
		notifRetention: config.Scoring.GetNotificationRetention(),
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.rescanAfter), s.rescanStaleSubjects); err != nil {
		return nil, fmt.Errorf("failed to schedule rescan: %w", err)
	}
	if _, err := s.cron.AddFunc("@every 1h", s.purgeOldJobs); err != nil {
		return nil, fmt.Errorf("failed to schedule job purge: %w", err)
	}
	if _, err := s.cron.AddFunc("@daily", s.purgeOldNotifications); err != nil {
		return nil, fmt.Errorf("failed to schedule notification purge: %w", err)
	}

	s.cron.Start()
	logger.Info().
		Str("rescan_interval", s.rescanAfter.String()).
		Str("job_retention", s.jobRetention.String()).
		Str("notification_retention", s.notifRetention.String()).
		Msg("Maintenance scheduler started")
	return s, nil
}

func (s *scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// rescanStaleSubjects enqueues a refresh at normal priority for every
// tracked subject whose last analysis predates the rescan interval.
// Subjects with work already in flight are skipped by queue admission.
func (s *scheduler) rescanStaleSubjects() {
	start := time.Now()
	subjects, err := s.storage.Subjects().List()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rescan: failed to list subjects")
		return
	}

	cutoff := time.Now().UTC().Add(-s.rescanAfter)
	enqueued := 0
	for _, subject := range subjects {
		if subject.AnalyzedAt.After(cutoff) {
			continue
		}
		_, err := s.orchestrator.EnqueueAnalysis(subject.Ticker, "scheduled rescan", models.PriorityNormal)
		if err != nil {
			if err == models.ErrDuplicateInFlight {
				continue
			}
			s.logger.Warn().Err(err).Str("ticker", subject.Ticker).Msg("Rescan: enqueue failed")
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info().
			Int("enqueued", enqueued).
			Int("subjects", len(subjects)).
			Dur("elapsed", time.Since(start)).
			Msg("Rescan: complete")
	}
}

// purgeOldJobs removes terminal jobs past the retention window.
func (s *scheduler) purgeOldJobs() {
	cutoff := time.Now().UTC().Add(-s.jobRetention)
	purged, err := s.storage.Jobs().PurgeTerminal(cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Purge: failed to remove old jobs")
		return
	}
	if purged > 0 {
		s.logger.Info().Int("purged", purged).Msg("Purge: removed old terminal jobs")
	}
}

// purgeOldNotifications removes notification records past their retention
// window, which also retires their dedup keys.
func (s *scheduler) purgeOldNotifications() {
	cutoff := time.Now().UTC().Add(-s.notifRetention)
	purged, err := s.storage.Notifications().PurgeOlderThan(cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Purge: failed to remove old notifications")
		return
	}
	if purged > 0 {
		s.logger.Info().Int("purged", purged).Msg("Purge: removed old notifications")
	}
}
