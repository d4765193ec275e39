package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/models"
)

func TestDetectShortSeriesIsRanging(t *testing.T) {
	regimeService := NewRegimeService()

	analysis := regimeService.Detect(seriesFromCloses(flatCloses(30, 100)))
	assert.Equal(t, models.RegimeRanging, analysis.Regime)
	assert.Equal(t, 0.0, analysis.Confidence)
	assert.Equal(t, 1.0, analysis.ATRRatio)
}

func TestDetectSteadyClimbIsTrendingUp(t *testing.T) {
	regimeService := NewRegimeService()

	analysis := regimeService.Detect(seriesFromCloses(risingCloses(150, 100, 1)))
	assert.Equal(t, models.RegimeTrendingUp, analysis.Regime)
	assert.Equal(t, 1, analysis.TrendDirection)
	assert.Greater(t, analysis.ADX, 25.0)
	assert.Greater(t, analysis.Confidence, 0.0)
	assert.Contains(t, analysis.RecommendedCategories, "trend-following")
}

func TestDetectSteadyDeclineIsTrendingDown(t *testing.T) {
	regimeService := NewRegimeService()

	analysis := regimeService.Detect(seriesFromCloses(risingCloses(150, 100, -1)))
	assert.Equal(t, models.RegimeTrendingDown, analysis.Regime)
	assert.Equal(t, -1, analysis.TrendDirection)
	assert.Contains(t, analysis.RecommendedCategories, "divergence")
}

func TestDetectFlatMarketIsRanging(t *testing.T) {
	regimeService := NewRegimeService()

	analysis := regimeService.Detect(seriesFromCloses(flatCloses(150, 100)))
	assert.Equal(t, models.RegimeRanging, analysis.Regime)
	assert.Contains(t, analysis.RecommendedCategories, "mean-reversion")
}
