package scorecard

import "github.com/shaharAka/Shaharstocks-sub005/internal/models"

// macroDefs are the market-context metrics used for the standalone macro
// analysis. Same thresholds as the macroSector section of the scorecard.
var macroDefs = []MetricDef{
	{Name: "sector_momentum", Weight: 6, MaxScore: 10, Bounds: [4]float64{0.08, 0.03, -0.01, -0.05}},
	{Name: "market_breadth", Weight: 5, MaxScore: 10, Bounds: [4]float64{0.65, 0.55, 0.45, 0.35}},
	{Name: "rate_environment", Weight: 4, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{0.02, 0.035, 0.05, 0.065}},
}

// ComputeMacro scores the market/sector context for a subject. Returns a
// nil score when no macro metrics are available. The returned stance is
// the upstream stance string when present, otherwise derived from the
// score.
func ComputeMacro(facts *models.MacroFacts) (*float64, string) {
	if facts == nil {
		return nil, ""
	}

	var num, den float64
	present := 0
	for _, def := range macroDefs {
		var measurement *float64
		if facts.Metrics != nil {
			measurement = facts.Metrics[def.Name]
		}
		bucket := def.Bucket(measurement)
		num += bucketFraction[bucket] * def.Weight
		den += def.Weight
		if bucket != models.BucketMissing {
			present++
		}
	}

	if present == 0 {
		return nil, facts.Stance
	}

	score := num / den * 100
	stance := facts.Stance
	if stance == "" {
		switch {
		case score >= 65:
			stance = "buy"
		case score <= 35:
			stance = "avoid"
		default:
			stance = "neutral"
		}
	}
	return &score, stance
}

// BasicHealth is the last-resort score used when neither an integrated
// score, a micro confidence score nor a scorecard exists for a subject.
// It averages the core fundamental metrics, returning nil when none are
// measured.
func BasicHealth(facts *models.FactSet) *float64 {
	if facts == nil {
		return nil
	}

	defs := []MetricDef{
		{Name: "pe_ratio", Weight: 1, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{10, 18, 25, 35}},
		{Name: "debt_to_equity", Weight: 1, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{0.3, 0.8, 1.5, 2.5}},
		{Name: "fcf_margin", Weight: 1, MaxScore: 10, Bounds: [4]float64{0.15, 0.08, 0.03, 0}},
	}

	var sum float64
	present := 0
	for _, def := range defs {
		measurement := facts.Metric(def.Name)
		bucket := def.Bucket(measurement)
		if bucket == models.BucketMissing {
			continue
		}
		sum += bucketFraction[bucket] * 100
		present++
	}
	if present == 0 {
		return nil
	}
	health := sum / float64(present)
	return &health
}
