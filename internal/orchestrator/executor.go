package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/fusion"
	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
	"github.com/shaharAka/Shaharstocks-sub005/internal/scorecard"
)

// errCancelled aborts a run when the job was flagged for cancellation.
var errCancelled = errors.New("job cancelled")

// advance validates and persists a phase transition, then broadcasts it.
// An out-of-order transition is a programming error: it is logged loudly,
// fails the job fatally and is never retried.
func (m *Manager) advance(job *models.AnalysisJob, phase, substep string, progress float64) error {
	if !models.ValidPhaseTransition(job.Phase, phase) {
		return fmt.Errorf("%w: %s -> %s (job %s)", models.ErrInvalidPhaseTransition, job.Phase, phase, job.ID)
	}

	job.Phase = phase
	job.Substep = substep
	job.ProgressFraction = progress
	if err := m.storage.Jobs().Update(job); err != nil {
		return fmt.Errorf("failed to persist phase for job %s: %w", job.ID, err)
	}

	m.broadcastJob("job_phase", job)
	return nil
}

// checkCancelled re-reads the job and reports whether a cancel was
// requested. Workers call this at every phase boundary.
func (m *Manager) checkCancelled(job *models.AnalysisJob) error {
	current, err := m.storage.Jobs().Get(job.ID)
	if err != nil {
		return err
	}
	if current.CancelRequested {
		return errCancelled
	}
	return nil
}

// runJob drives one job through the phase pipeline. Any unhandled error
// maps to a failed job with the triggering error recorded; partial
// progress is discarded, no partial result is ever persisted as final.
func (m *Manager) runJob(ctx context.Context, job *models.AnalysisJob) {
	start := time.Now()
	err := m.execute(ctx, job)
	duration := time.Since(start)

	switch {
	case err == nil:
		m.logger.Info().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Dur("duration", duration).
			Msg("Analysis completed")

	case errors.Is(err, models.ErrJobSuperseded):
		// The reaper (or a cancel) already failed this job and owns its
		// retry. Writing anything now would resurrect a terminal job.
		m.logger.Info().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Dur("duration", duration).
			Msg("Job failed elsewhere while running, abandoning result")

	case errors.Is(err, errCancelled):
		m.logger.Info().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Msg("Analysis cancelled")
		m.failFatal(job, models.ErrJobCancelled.Error())

	case errors.Is(err, models.ErrInvalidPhaseTransition):
		m.logger.Error().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Err(err).
			Msg("Invalid phase transition, failing job without retry")
		m.failFatal(job, err.Error())

	default:
		m.logger.Warn().
			Str("job_id", job.ID).
			Str("subject", job.SubjectKey).
			Dur("duration", duration).
			Err(err).
			Msg("Analysis failed")
		m.failRetryable(job, err)
	}
}

func (m *Manager) execute(ctx context.Context, job *models.AnalysisJob) error {
	subject := job.SubjectKey

	m.setAnalysisStatus(subject, models.AnalysisStatusAnalyzing, job.ID)

	// Phase 1: fetch raw facts.
	if err := m.advance(job, models.PhaseFetchingData, "fetching facts", 0.1); err != nil {
		return err
	}
	facts, err := m.facts.FetchFacts(ctx, subject)
	if err != nil {
		m.setAnalysisStatus(subject, models.AnalysisStatusFailed, job.ID)
		return fmt.Errorf("fetch facts for %s: %w", subject, err)
	}

	if err := m.checkCancelled(job); err != nil {
		return err
	}

	// Phase 2: micro scoring.
	if err := m.advance(job, models.PhaseCalculatingScore, "computing scorecard", 0.4); err != nil {
		return err
	}
	card := scorecard.Compute(subject, facts)
	micro := float64(card.GlobalScore)

	// Macro context is optional: absent data narrows the analysis to the
	// micro score, it does not fail the run.
	var macroScore *float64
	var macroStance string
	macroFacts, err := m.facts.FetchMacro(ctx, subject)
	if err != nil && !errors.Is(err, models.ErrDataUnavailable) {
		m.setAnalysisStatus(subject, models.AnalysisStatusFailed, job.ID)
		return fmt.Errorf("fetch macro for %s: %w", subject, err)
	}
	if err == nil {
		macroScore, macroStance = scorecard.ComputeMacro(macroFacts)
	}

	if err := m.checkCancelled(job); err != nil {
		return err
	}

	// Phase 3: fuse scores and derive the recommendation.
	if err := m.advance(job, models.PhaseGeneratingPlaybook, "fusing scores", 0.8); err != nil {
		return err
	}

	integrated := fusion.Integrate(micro, macroScore, m.macroBlend)
	stance := microStance(card.GlobalScore)
	if macroStance != "" {
		stance = stance + " / " + macroStance
	}
	recommendation := fusion.ClassifyStance(stance)

	analysis := &models.StockAnalysis{
		SubjectKey:           subject,
		CompanyName:          facts.CompanyName,
		Status:               models.AnalysisStatusCompleted,
		ConfidenceScore:      &micro,
		MacroScore:           macroScore,
		MacroStance:          macroStance,
		IntegratedScore:      &integrated,
		FinancialHealthScore: scorecard.BasicHealth(facts),
		Recommendation:       recommendation,
		Scorecard:            card,
		CurrentPrice:         facts.CurrentPrice,
		PriceChange:          facts.PriceChange,
		Summary:              card.Summary,
		JobID:                job.ID,
		AnalyzedAt:           time.Now().UTC(),
	}

	if err := m.checkCancelled(job); err != nil {
		return err
	}

	// Persist the result, then complete.
	if err := m.storage.Analyses().Save(analysis); err != nil {
		return fmt.Errorf("save analysis for %s: %w", subject, err)
	}
	m.updateSubject(analysis)

	if err := m.storage.Jobs().MarkCompleted(job.ID); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	job.Status = models.JobStatusCompleted
	job.Phase = models.PhaseComplete
	job.ProgressFraction = 1
	m.broadcastJob("job_completed", job)

	m.hub.BroadcastStreamEvent(models.StreamEvent{
		Type:   models.EventStockStatusChanged,
		Ticker: subject,
		Status: models.AnalysisStatusCompleted,
	})
	m.hub.BroadcastStreamEvent(models.StreamEvent{
		Type:   models.EventPriceUpdated,
		Ticker: subject,
		Price:  facts.CurrentPrice,
		Change: facts.PriceChange,
	})

	if _, err := m.notifier.Evaluate(ctx, analysis); err != nil {
		m.logger.Warn().Err(err).Str("subject", subject).Msg("Notification evaluation failed")
	}
	return nil
}

// microStance maps the scorecard score onto a stance string for the
// central classifier.
func microStance(globalScore int) string {
	switch {
	case globalScore >= 65:
		return "buy"
	case globalScore <= 35:
		return "avoid"
	default:
		return "neutral"
	}
}

// setAnalysisStatus records transient pipeline status on the analysis
// record so pollers see pending/analyzing/failed while a run is active.
func (m *Manager) setAnalysisStatus(subject, status, jobID string) {
	analysis, err := m.storage.Analyses().Get(subject)
	if err != nil {
		analysis = &models.StockAnalysis{SubjectKey: subject}
	}
	analysis.Status = status
	analysis.JobID = jobID
	if err := m.storage.Analyses().Save(analysis); err != nil {
		m.logger.Warn().Err(err).Str("subject", subject).Msg("Failed to update analysis status")
	}

	m.hub.BroadcastStreamEvent(models.StreamEvent{
		Type:   models.EventStockStatusChanged,
		Ticker: subject,
		Status: status,
	})
}

// updateSubject writes the completed result back to the registry and
// emits a stance-change event when the recommendation moved.
func (m *Manager) updateSubject(analysis *models.StockAnalysis) {
	score := fusion.ResolvePrimaryScore(analysis)
	newStance := string(analysis.Recommendation)

	entry, err := m.storage.Subjects().Get(analysis.SubjectKey)
	if err != nil {
		entry = &models.SubjectEntry{
			Ticker: analysis.SubjectKey,
			Source: "ingest",
		}
	}
	oldStance := entry.LastStance

	entry.CompanyName = analysis.CompanyName
	entry.LastScore = score
	entry.LastStance = newStance
	entry.LastPrice = analysis.CurrentPrice
	entry.CurrentJobID = ""
	entry.AnalyzedAt = time.Now().UTC()
	if err := m.storage.Subjects().Upsert(entry); err != nil {
		m.logger.Warn().Err(err).Str("subject", analysis.SubjectKey).Msg("Failed to update subject registry")
	}

	if oldStance != "" && oldStance != newStance {
		m.hub.BroadcastStreamEvent(models.StreamEvent{
			Type:      models.EventStanceChanged,
			Ticker:    analysis.SubjectKey,
			OldStance: oldStance,
			NewStance: newStance,
		})
	}
}
