package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/models"
)

func TestGenerateCombinationsCartesianProduct(t *testing.T) {
	combinations := generateCombinations(map[string]models.ParameterRange{
		"x": {Min: 1, Max: 3, Step: 1},
		"y": {Min: 0.1, Max: 0.3, Step: 0.1},
	})

	assert.Len(t, combinations, 9)
	assert.Equal(t, 1.0, combinations[0]["x"])
	assert.Equal(t, 0.1, combinations[0]["y"])
	// Fractional steps stay exact after rounding.
	for _, combination := range combinations {
		assert.Contains(t, []float64{0.1, 0.2, 0.3}, combination["y"])
	}
}

func TestSampleCombinationsEvenStride(t *testing.T) {
	combinations := generateCombinations(map[string]models.ParameterRange{
		"x": {Min: 1, Max: 600, Step: 1},
	})
	assert.Len(t, combinations, 600)

	sampled := sampleCombinations(combinations, 500)
	assert.Len(t, sampled, 500)
	assert.Equal(t, combinations[0], sampled[0])
}

func TestGridSearchCapsTestedCombinations(t *testing.T) {
	strategy := &scriptedStrategy{
		id: "stub",
		ranges: map[string]models.ParameterRange{
			"a": {Min: 1, Max: 30, Step: 1},
			"b": {Min: 1, Max: 30, Step: 1},
		},
	}

	gridSearchService := NewGridSearchService(NewBacktestService())
	result, err := gridSearchService.Search(strategy, seriesFromCloses(flatCloses(120, 100)),
		OptimizeSharpe, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.Equal(t, 900, result.TotalCombinations)
	assert.Equal(t, MaxCombinations, result.TestedCombinations)
	// Always-hold strategy never trades, so nothing survives the trade floor.
	assert.Nil(t, result.Best)
}

func TestGridSearchDiscardsLowTradeCounts(t *testing.T) {
	// Two trades total: below MinGridTrades, so no best result.
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 51 || windowLen == 80 {
			return models.ActionBuy, 0.9
		}
		if windowLen == 60 || windowLen == 90 {
			return models.ActionSell, 0.9
		}
		return models.ActionHold, 0
	}}

	gridSearchService := NewGridSearchService(NewBacktestService())
	result, err := gridSearchService.Search(strategy, seriesFromCloses(flatCloses(120, 100)),
		OptimizeSharpe, models.DefaultBacktestConfig())
	assert.Nil(t, err)
	assert.Nil(t, result.Best)
}

func TestGridSearchFindsBestAndStripsAlternativeTrades(t *testing.T) {
	// Frequent entries on a steady climb: plenty of winning trades.
	strategy := &scriptedStrategy{
		id: "stub",
		ranges: map[string]models.ParameterRange{
			"a": {Min: 1, Max: 3, Step: 1},
		},
		script: func(windowLen int) (models.Action, float64) {
			if windowLen%5 == 0 {
				return models.ActionBuy, 0.9
			}
			return models.ActionHold, 0
		},
	}

	gridSearchService := NewGridSearchService(NewBacktestService())
	result, err := gridSearchService.Search(strategy, seriesFromCloses(risingCloses(300, 100, 1)),
		OptimizeReturn, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.NotNil(t, result.Best)
	assert.Greater(t, result.Best.TradeCount, MinGridTrades-1)
	assert.Greater(t, result.BestScore, 0.0)
	assert.NotEmpty(t, result.Best.Trades)
	for _, alternative := range result.Alternatives {
		assert.Nil(t, alternative.Trades)
	}
}
