package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func f(v float64) *float64 { return &v }

func TestIntegrate(t *testing.T) {
	assert.InDelta(t, 80, Integrate(80, nil, 0.3), 0.001, "no macro passes micro through")
	assert.InDelta(t, 80*0.7+50*0.3, Integrate(80, f(50), 0.3), 0.001)
	assert.InDelta(t, 80*0.7+50*0.3, Integrate(80, f(50), 0), 0.001, "invalid blend uses default")
	assert.InDelta(t, 80*0.7+50*0.3, Integrate(80, f(50), 1.5), 0.001)
}

func TestClassifyStance(t *testing.T) {
	cases := []struct {
		stance string
		want   models.Recommendation
	}{
		{"buy", models.RecommendationBuy},
		{"Strong Buy", models.RecommendationBuy},
		{"  BUY NOW  ", models.RecommendationBuy},
		{"sell", models.RecommendationSell},
		{"short-term short", models.RecommendationSell},
		{"avoid", models.RecommendationSell},
		{"neutral", models.RecommendationHold},
		{"hold", models.RecommendationHold},
		{"", models.RecommendationHold},
		{"unknown stance text", models.RecommendationHold},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyStance(tc.stance), "stance %q", tc.stance)
	}
}

func TestResolvePrimaryScoreFallbackChain(t *testing.T) {
	assert.Nil(t, ResolvePrimaryScore(nil))
	assert.Nil(t, ResolvePrimaryScore(&models.StockAnalysis{}))

	// Integrated wins over everything else.
	a := &models.StockAnalysis{
		IntegratedScore:      f(72),
		ConfidenceScore:      f(60),
		Scorecard:            &models.Scorecard{GlobalScore: 55},
		FinancialHealthScore: f(40),
	}
	got := ResolvePrimaryScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 72, *got, 0.001)

	a.IntegratedScore = nil
	got = ResolvePrimaryScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 60, *got, 0.001)

	a.ConfidenceScore = nil
	got = ResolvePrimaryScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 55, *got, 0.001)

	// Only the basic health score set resolves to that value.
	a = &models.StockAnalysis{FinancialHealthScore: f(40)}
	got = ResolvePrimaryScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 40, *got, 0.001)
}

func TestIsHighSignal(t *testing.T) {
	assert.False(t, IsHighSignal(nil))
	assert.False(t, IsHighSignal(&models.StockAnalysis{
		Status:          models.AnalysisStatusAnalyzing,
		IntegratedScore: f(90),
		Recommendation:  models.RecommendationBuy,
	}), "only completed analyses qualify")
	assert.False(t, IsHighSignal(&models.StockAnalysis{
		Status:          models.AnalysisStatusCompleted,
		IntegratedScore: f(90),
		Recommendation:  models.RecommendationHold,
	}))
	assert.False(t, IsHighSignal(&models.StockAnalysis{
		Status:          models.AnalysisStatusCompleted,
		IntegratedScore: f(69.9),
		Recommendation:  models.RecommendationBuy,
	}))
	assert.True(t, IsHighSignal(&models.StockAnalysis{
		Status:          models.AnalysisStatusCompleted,
		IntegratedScore: f(70),
		Recommendation:  models.RecommendationBuy,
	}))
}
