// Package scorecard implements the weighted section scoring engine. All
// functions are pure: they consume pre-fetched measurements and produce
// immutable scorecard values, with no I/O and no shared mutable state.
package scorecard

import "github.com/shaharAka/Shaharstocks-sub005/internal/models"

// Section keys. Every scorecard contains exactly this set.
const (
	SectionFundamentals    = "fundamentals"
	SectionTechnicals      = "technicals"
	SectionInsiderActivity = "insiderActivity"
	SectionNewsSentiment   = "newsSentiment"
	SectionMacroSector     = "macroSector"
)

// MetricDef declares one metric's weight and its fixed bucketing
// thresholds. Bounds are the boundaries between excellent|good|neutral|
// weak|poor, read left to right from the favorable end; a measurement
// exactly on a boundary resolves to the better bucket. For LowerIsBetter
// metrics the bounds ascend instead of descend.
type MetricDef struct {
	Name          string
	Weight        float64
	MaxScore      float64
	LowerIsBetter bool
	Bounds        [4]float64
}

// SectionDef groups metric definitions under one section weight.
type SectionDef struct {
	Key     string
	Weight  float64
	Metrics []MetricDef
}

// bucketFraction maps a rule bucket to its share of a metric's max score.
var bucketFraction = map[models.RuleBucket]float64{
	models.BucketExcellent: 1.0,
	models.BucketGood:      0.8,
	models.BucketNeutral:   0.55,
	models.BucketWeak:      0.3,
	models.BucketPoor:      0.1,
	models.BucketMissing:   0,
}

// registry is the fixed section set. Section weights sum to 100.
var registry = []SectionDef{
	{
		Key:    SectionFundamentals,
		Weight: 30,
		Metrics: []MetricDef{
			{Name: "pe_ratio", Weight: 10, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{10, 18, 25, 35}},
			{Name: "revenue_growth", Weight: 10, MaxScore: 10, Bounds: [4]float64{0.20, 0.10, 0.03, 0}},
			{Name: "debt_to_equity", Weight: 5, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{0.3, 0.8, 1.5, 2.5}},
			{Name: "fcf_margin", Weight: 5, MaxScore: 10, Bounds: [4]float64{0.15, 0.08, 0.03, 0}},
		},
	},
	{
		Key:    SectionTechnicals,
		Weight: 20,
		Metrics: []MetricDef{
			{Name: "price_vs_sma200", Weight: 7, MaxScore: 10, Bounds: [4]float64{0.10, 0.03, -0.03, -0.10}},
			{Name: "momentum_3m", Weight: 7, MaxScore: 10, Bounds: [4]float64{0.15, 0.05, -0.02, -0.10}},
			{Name: "volume_trend", Weight: 6, MaxScore: 10, Bounds: [4]float64{0.25, 0.10, 0, -0.15}},
		},
	},
	{
		Key:    SectionInsiderActivity,
		Weight: 25,
		Metrics: []MetricDef{
			{Name: "net_buy_ratio", Weight: 10, MaxScore: 10, Bounds: [4]float64{0.75, 0.5, 0.25, 0.1}},
			{Name: "cluster_buy_count", Weight: 8, MaxScore: 10, Bounds: [4]float64{3, 2, 1, 0}},
			{Name: "officer_participation", Weight: 7, MaxScore: 10, Bounds: [4]float64{0.5, 0.3, 0.15, 0.05}},
		},
	},
	{
		Key:    SectionNewsSentiment,
		Weight: 10,
		Metrics: []MetricDef{
			{Name: "sentiment_score", Weight: 6, MaxScore: 10, Bounds: [4]float64{0.6, 0.3, 0, -0.3}},
			{Name: "coverage_volume", Weight: 4, MaxScore: 10, Bounds: [4]float64{20, 10, 4, 1}},
		},
	},
	{
		Key:    SectionMacroSector,
		Weight: 15,
		Metrics: []MetricDef{
			{Name: "sector_momentum", Weight: 6, MaxScore: 10, Bounds: [4]float64{0.08, 0.03, -0.01, -0.05}},
			{Name: "market_breadth", Weight: 5, MaxScore: 10, Bounds: [4]float64{0.65, 0.55, 0.45, 0.35}},
			{Name: "rate_environment", Weight: 4, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{0.02, 0.035, 0.05, 0.065}},
		},
	},
}

// Registry returns the fixed section definitions in scoring order.
func Registry() []SectionDef {
	return registry
}

// Bucket classifies a measurement against the metric's thresholds.
// A nil measurement is missing.
func (d MetricDef) Bucket(measurement *float64) models.RuleBucket {
	if measurement == nil {
		return models.BucketMissing
	}
	v := *measurement
	buckets := [4]models.RuleBucket{models.BucketExcellent, models.BucketGood, models.BucketNeutral, models.BucketWeak}
	for i, bound := range d.Bounds {
		if d.LowerIsBetter {
			if v <= bound {
				return buckets[i]
			}
		} else {
			if v >= bound {
				return buckets[i]
			}
		}
	}
	return models.BucketPoor
}
