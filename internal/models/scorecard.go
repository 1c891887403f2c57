package models

import "time"

// RuleBucket classifies a raw measurement against fixed per-metric thresholds.
type RuleBucket string

const (
	BucketExcellent RuleBucket = "excellent"
	BucketGood      RuleBucket = "good"
	BucketNeutral   RuleBucket = "neutral"
	BucketWeak      RuleBucket = "weak"
	BucketPoor      RuleBucket = "poor"
	BucketMissing   RuleBucket = "missing"
)

// Confidence rates how complete the data behind a scorecard was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MetricScore is one measured attribute within a section.
// Measurement is nil when the upstream had no data, in which case the
// bucket is missing and the score is zero — the metric's weight still
// counts in the section denominator.
type MetricScore struct {
	Name        string     `json:"name"`
	Measurement *float64   `json:"measurement"`
	RuleBucket  RuleBucket `json:"rule_bucket"`
	Score       float64    `json:"score"`
	MaxScore    float64    `json:"max_score"`
	Weight      float64    `json:"weight"`
	Rationale   string     `json:"rationale"`
}

// SectionScore is a named group of metric scores.
type SectionScore struct {
	Weight         float64                `json:"weight"` // contribution to the global score, 0-100
	Score          float64                `json:"score"`  // normalized 0-100
	Metrics        map[string]MetricScore `json:"metrics"`
	MissingMetrics []string               `json:"missing_metrics"`
}

// Scorecard is the aggregate scoring output for one subject at one point in
// time. Immutable after creation; superseded, never mutated, by the next run.
type Scorecard struct {
	Version            string                  `json:"version"`
	SubjectKey         string                  `json:"subject_key" badgerhold:"key"`
	TradingHorizon     string                  `json:"trading_horizon"`
	ComputedAt         time.Time               `json:"computed_at"`
	Sections           map[string]SectionScore `json:"sections"`
	GlobalScore        int                     `json:"global_score"`
	MaxGlobalScore     int                     `json:"max_global_score"`
	MissingDataPenalty float64                 `json:"missing_data_penalty"`
	Confidence         Confidence              `json:"confidence"`
	Summary            string                  `json:"summary"`
}
