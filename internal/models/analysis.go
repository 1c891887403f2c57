package models

import "time"

// Recommendation is the closed set of directional stances.
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
)

// Analysis status constants
const (
	AnalysisStatusPending   = "pending"
	AnalysisStatusAnalyzing = "analyzing"
	AnalysisStatusCompleted = "completed"
	AnalysisStatusFailed    = "failed"
)

// StockAnalysis is the per-subject result combining the micro scorecard
// with an optional macro-context score. Optional scores are pointers so
// that absent and zero are distinguishable.
type StockAnalysis struct {
	SubjectKey           string         `json:"subject_key" badgerhold:"key"`
	CompanyName          string         `json:"company_name,omitempty"`
	Status               string         `json:"status"`
	ConfidenceScore      *float64       `json:"confidence_score,omitempty"` // micro-only score
	MacroScore           *float64       `json:"macro_score,omitempty"`
	MacroStance          string         `json:"macro_stance,omitempty"`
	IntegratedScore      *float64       `json:"integrated_score,omitempty"`
	FinancialHealthScore *float64       `json:"financial_health_score,omitempty"` // last-resort basic health
	Recommendation       Recommendation `json:"recommendation,omitempty"`
	Scorecard            *Scorecard     `json:"scorecard,omitempty"`
	CurrentPrice         float64        `json:"current_price,omitempty"`
	PriceChange          float64        `json:"price_change,omitempty"`
	Summary              string         `json:"summary,omitempty"`
	JobID                string         `json:"job_id,omitempty"`
	AnalyzedAt           time.Time      `json:"analyzed_at,omitzero"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
