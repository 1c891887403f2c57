// Package fusion combines micro and macro analysis scores into one
// integrated score and a directional recommendation. Classification and
// primary-score resolution live here and only here — every consumer calls
// these functions rather than re-implementing the rules.
package fusion

import (
	"strings"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// DefaultMacroBlend is the macro share of the integrated score when no
// configuration overrides it.
const DefaultMacroBlend = 0.3

// HighSignalScore is the floor for the "worth exploring" classification.
const HighSignalScore = 70

// Integrate fuses a micro score with an optional macro score. With no
// macro score the micro score passes through unchanged. macroBlend is the
// macro share, 0-1; values outside that range fall back to the default.
func Integrate(microScore float64, macroScore *float64, macroBlend float64) float64 {
	if macroScore == nil {
		return microScore
	}
	if macroBlend <= 0 || macroBlend >= 1 {
		macroBlend = DefaultMacroBlend
	}
	return microScore*(1-macroBlend) + *macroScore*macroBlend
}

// ClassifyStance normalizes a free-text stance string into the closed
// recommendation set. Substring rules: "buy" wins, then any of "sell",
// "short", "avoid"; everything else holds.
func ClassifyStance(stance string) models.Recommendation {
	s := strings.ToLower(strings.TrimSpace(stance))
	if strings.Contains(s, "buy") {
		return models.RecommendationBuy
	}
	for _, neg := range []string{"sell", "short", "avoid"} {
		if strings.Contains(s, neg) {
			return models.RecommendationSell
		}
	}
	return models.RecommendationHold
}

// ResolvePrimaryScore returns the single authoritative score for an
// analysis, following the strict fallback chain: integrated score, then
// micro confidence score, then scorecard global score, then the basic
// health score. Returns nil when none of them exist.
func ResolvePrimaryScore(a *models.StockAnalysis) *float64 {
	if a == nil {
		return nil
	}
	if a.IntegratedScore != nil {
		return a.IntegratedScore
	}
	if a.ConfidenceScore != nil {
		return a.ConfidenceScore
	}
	if a.Scorecard != nil {
		score := float64(a.Scorecard.GlobalScore)
		return &score
	}
	if a.FinancialHealthScore != nil {
		return a.FinancialHealthScore
	}
	return nil
}

// IsHighSignal reports whether a completed analysis is worth surfacing:
// primary score at or above the high-signal floor with a BUY
// recommendation.
func IsHighSignal(a *models.StockAnalysis) bool {
	if a == nil || a.Status != models.AnalysisStatusCompleted {
		return false
	}
	score := ResolvePrimaryScore(a)
	if score == nil {
		return false
	}
	return *score >= HighSignalScore && a.Recommendation == models.RecommendationBuy
}
