package scorecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func f(v float64) *float64 { return &v }

// allExcellent returns measurements that land every registered metric in
// the excellent bucket.
func allExcellent() map[string]*float64 {
	return map[string]*float64{
		"pe_ratio":              f(8),
		"revenue_growth":        f(0.25),
		"debt_to_equity":        f(0.2),
		"fcf_margin":            f(0.2),
		"price_vs_sma200":       f(0.12),
		"momentum_3m":           f(0.2),
		"volume_trend":          f(0.3),
		"net_buy_ratio":         f(0.9),
		"cluster_buy_count":     f(4),
		"officer_participation": f(0.6),
		"sentiment_score":       f(0.7),
		"coverage_volume":       f(25),
		"sector_momentum":       f(0.1),
		"market_breadth":        f(0.7),
		"rate_environment":      f(0.015),
	}
}

func TestBucketBoundariesInclusiveOnFavorableSide(t *testing.T) {
	higher := MetricDef{Name: "m", Weight: 1, MaxScore: 10, Bounds: [4]float64{0.20, 0.10, 0.03, 0}}
	assert.Equal(t, models.BucketExcellent, higher.Bucket(f(0.20)))
	assert.Equal(t, models.BucketGood, higher.Bucket(f(0.19)))
	assert.Equal(t, models.BucketGood, higher.Bucket(f(0.10)))
	assert.Equal(t, models.BucketWeak, higher.Bucket(f(0)))
	assert.Equal(t, models.BucketPoor, higher.Bucket(f(-0.01)))

	lower := MetricDef{Name: "m", Weight: 1, MaxScore: 10, LowerIsBetter: true, Bounds: [4]float64{10, 18, 25, 35}}
	assert.Equal(t, models.BucketExcellent, lower.Bucket(f(10)))
	assert.Equal(t, models.BucketGood, lower.Bucket(f(10.5)))
	assert.Equal(t, models.BucketWeak, lower.Bucket(f(35)))
	assert.Equal(t, models.BucketPoor, lower.Bucket(f(35.1)))

	assert.Equal(t, models.BucketMissing, higher.Bucket(nil))
}

func TestSectionMissingMetricDragsScoreDown(t *testing.T) {
	def := SectionDef{
		Key:    "test",
		Weight: 100,
		Metrics: []MetricDef{
			{Name: "a", Weight: 50, MaxScore: 10, Bounds: [4]float64{1, 0.5, 0.2, 0}},
			{Name: "b", Weight: 50, MaxScore: 10, Bounds: [4]float64{1, 0.5, 0.2, 0}},
		},
	}
	facts := &models.FactSet{Metrics: map[string]*float64{"a": f(2)}}

	section := computeSection(def, facts)

	// a contributes the full excellent fraction, b contributes zero while
	// its weight stays in the denominator.
	assert.InDelta(t, 50, section.Score, 0.001)
	assert.Equal(t, []string{"b"}, section.MissingMetrics)
	assert.Equal(t, models.BucketMissing, section.Metrics["b"].RuleBucket)
	assert.Zero(t, section.Metrics["b"].Score)
}

func TestComputeFullDataExcellent(t *testing.T) {
	card := Compute("AAPL", &models.FactSet{Ticker: "AAPL", Metrics: allExcellent()})

	require.NotNil(t, card)
	assert.Equal(t, 100, card.GlobalScore)
	assert.Equal(t, 100, card.MaxGlobalScore)
	assert.Zero(t, card.MissingDataPenalty)
	assert.Equal(t, models.ConfidenceHigh, card.Confidence)
	assert.Len(t, card.Sections, 5)
	for key, section := range card.Sections {
		assert.InDelta(t, 100, section.Score, 0.001, "section %s", key)
		assert.Empty(t, section.MissingMetrics, "section %s", key)
	}
}

func TestComputeNoDataAtAll(t *testing.T) {
	card := Compute("XYZ", &models.FactSet{Ticker: "XYZ"})

	assert.Zero(t, card.GlobalScore)
	assert.InDelta(t, 100, card.MissingDataPenalty, 0.001)
	assert.Equal(t, models.ConfidenceLow, card.Confidence)
	for key, section := range card.Sections {
		assert.Zero(t, section.Score, "section %s", key)
	}
}

func TestComputeEverySectionPresent(t *testing.T) {
	card := Compute("XYZ", &models.FactSet{Ticker: "XYZ"})

	for _, def := range Registry() {
		_, ok := card.Sections[def.Key]
		assert.True(t, ok, "section %s must be present even when empty", def.Key)
	}
}

func TestGlobalScoreMonotonicInMissingData(t *testing.T) {
	metrics := allExcellent()
	prev := Compute("T", &models.FactSet{Metrics: metrics}).GlobalScore

	// Drop metrics one at a time; the global score must never rise.
	for _, name := range []string{"pe_ratio", "net_buy_ratio", "sentiment_score", "sector_momentum"} {
		delete(metrics, name)
		cur := Compute("T", &models.FactSet{Metrics: metrics}).GlobalScore
		assert.LessOrEqual(t, cur, prev, "after dropping %s", name)
		prev = cur
	}
}

func TestConfidenceThresholds(t *testing.T) {
	assert.Equal(t, models.ConfidenceHigh, ConfidenceFor(0))
	assert.Equal(t, models.ConfidenceHigh, ConfidenceFor(14.9))
	assert.Equal(t, models.ConfidenceMedium, ConfidenceFor(15))
	assert.Equal(t, models.ConfidenceMedium, ConfidenceFor(39.9))
	assert.Equal(t, models.ConfidenceLow, ConfidenceFor(40))
	assert.Equal(t, models.ConfidenceLow, ConfidenceFor(100))
}

func TestComputeMacro(t *testing.T) {
	score, stance := ComputeMacro(nil)
	assert.Nil(t, score)
	assert.Empty(t, stance)

	score, stance = ComputeMacro(&models.MacroFacts{Ticker: "AAPL"})
	assert.Nil(t, score, "no measurements yields no macro score")
	assert.Empty(t, stance)

	score, stance = ComputeMacro(&models.MacroFacts{
		Ticker: "AAPL",
		Metrics: map[string]*float64{
			"sector_momentum":  f(0.1),
			"market_breadth":   f(0.7),
			"rate_environment": f(0.015),
		},
	})
	require.NotNil(t, score)
	assert.InDelta(t, 100, *score, 0.001)
	assert.Equal(t, "buy", stance)

	_, stance = ComputeMacro(&models.MacroFacts{
		Ticker:  "AAPL",
		Stance:  "avoid",
		Metrics: map[string]*float64{"sector_momentum": f(0.1)},
	})
	assert.Equal(t, "avoid", stance, "upstream stance wins over the derived one")
}

func TestBasicHealth(t *testing.T) {
	assert.Nil(t, BasicHealth(nil))
	assert.Nil(t, BasicHealth(&models.FactSet{}))

	health := BasicHealth(&models.FactSet{Metrics: map[string]*float64{
		"pe_ratio":       f(8),
		"debt_to_equity": f(0.2),
	}})
	require.NotNil(t, health)
	assert.InDelta(t, 100, *health, 0.001)
}
