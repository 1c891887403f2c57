package scorecard

import (
	"fmt"
	"math"
	"time"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// ScorecardVersion identifies the metric registry and weighting in effect
// when a scorecard was computed.
const ScorecardVersion = "v2"

// TradingHorizon describes the horizon the weighting targets.
const TradingHorizon = "3-6 months"

// Compute produces a scorecard for one subject from its pre-fetched facts.
// Missing metrics score zero while their weight stays in the denominator,
// so absent data drags a section down rather than being ignored.
func Compute(ticker string, facts *models.FactSet) *models.Scorecard {
	sections := make(map[string]models.SectionScore, len(registry))

	var weightedSum, weightTotal, missingWeight, totalMetricWeight float64
	missingCount := 0
	metricCount := 0

	for _, def := range registry {
		section := computeSection(def, facts)
		sections[def.Key] = section

		// A section with no defined metrics is excluded from the global
		// aggregate entirely.
		if len(def.Metrics) == 0 {
			continue
		}

		weightedSum += section.Score * def.Weight
		weightTotal += def.Weight

		var sectionWeight float64
		for _, m := range def.Metrics {
			sectionWeight += m.Weight
		}
		for _, name := range section.MissingMetrics {
			for _, m := range def.Metrics {
				if m.Name == name {
					missingWeight += m.Weight / sectionWeight * def.Weight
				}
			}
		}
		totalMetricWeight += def.Weight
		metricCount += len(def.Metrics)
		missingCount += len(section.MissingMetrics)
	}

	var penalty float64
	if totalMetricWeight > 0 {
		penalty = missingWeight / totalMetricWeight * 100
	}

	var raw float64
	if weightTotal > 0 {
		raw = weightedSum / weightTotal
	}
	global := int(math.Round(float64(int(math.Round(raw))) * (100 - penalty) / 100))

	return &models.Scorecard{
		Version:            ScorecardVersion,
		SubjectKey:         ticker,
		TradingHorizon:     TradingHorizon,
		ComputedAt:         time.Now().UTC(),
		Sections:           sections,
		GlobalScore:        global,
		MaxGlobalScore:     100,
		MissingDataPenalty: penalty,
		Confidence:         ConfidenceFor(penalty),
		Summary:            summarize(ticker, global, metricCount, missingCount),
	}
}

func computeSection(def SectionDef, facts *models.FactSet) models.SectionScore {
	metrics := make(map[string]models.MetricScore, len(def.Metrics))
	missing := []string{}

	var num, den float64
	for _, m := range def.Metrics {
		measurement := facts.Metric(m.Name)
		bucket := m.Bucket(measurement)
		score := bucketFraction[bucket] * m.MaxScore

		metrics[m.Name] = models.MetricScore{
			Name:        m.Name,
			Measurement: measurement,
			RuleBucket:  bucket,
			Score:       score,
			MaxScore:    m.MaxScore,
			Weight:      m.Weight,
			Rationale:   rationale(m, measurement, bucket),
		}

		num += score / m.MaxScore * m.Weight
		den += m.Weight
		if bucket == models.BucketMissing {
			missing = append(missing, m.Name)
		}
	}

	var score float64
	if den > 0 {
		score = num / den * 100
	}

	return models.SectionScore{
		Weight:         def.Weight,
		Score:          score,
		Metrics:        metrics,
		MissingMetrics: missing,
	}
}

// ConfidenceFor derives the confidence rating from the missing-data penalty.
func ConfidenceFor(penalty float64) models.Confidence {
	switch {
	case penalty < 15:
		return models.ConfidenceHigh
	case penalty < 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func rationale(m MetricDef, measurement *float64, bucket models.RuleBucket) string {
	if measurement == nil {
		return fmt.Sprintf("%s: no measurement available", m.Name)
	}
	return fmt.Sprintf("%s of %.3g rated %s", m.Name, *measurement, bucket)
}

func summarize(ticker string, global, metricCount, missingCount int) string {
	if missingCount == 0 {
		return fmt.Sprintf("%s scored %d/100 across %d metrics with full data coverage", ticker, global, metricCount)
	}
	return fmt.Sprintf("%s scored %d/100 across %d metrics (%d without data)", ticker, global, metricCount, missingCount)
}
