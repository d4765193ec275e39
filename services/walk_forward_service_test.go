package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/models"
)

func TestWalkForwardRejectsShortSeries(t *testing.T) {
	walkForwardService := NewWalkForwardService(NewBacktestService())
	strategy := &scriptedStrategy{id: "stub"}

	result, err := walkForwardService.Validate(strategy, seriesFromCloses(flatCloses(80, 100)),
		nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, "insufficient candles", result.Reason)
}

func TestWalkForwardFailsGracefullyOnThinOutSample(t *testing.T) {
	walkForwardService := NewWalkForwardService(NewBacktestService())
	strategy := &scriptedStrategy{id: "stub"}

	// 140 candles split 98/42: the out-of-sample window is below the
	// backtester's candle floor, so the verdict is a clean fail, not an error.
	result, err := walkForwardService.Validate(strategy, seriesFromCloses(risingCloses(140, 100, 0.5)),
		nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, "split windows too small", result.Reason)
}

func TestWalkForwardFailsWithoutInSampleEdge(t *testing.T) {
	walkForwardService := NewWalkForwardService(NewBacktestService())
	strategy := &scriptedStrategy{id: "stub"}

	result, err := walkForwardService.Validate(strategy, seriesFromCloses(flatCloses(300, 100)),
		nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, "no in-sample edge", result.Reason)
}

func TestWalkForwardPassesWhenEdgeHoldsOutOfSample(t *testing.T) {
	// One winning trade at the same window offset in both splits.
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 55 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	walkForwardService := NewWalkForwardService(NewBacktestService())
	result, err := walkForwardService.Validate(strategy, seriesFromCloses(risingCloses(300, 100, 0.5)),
		nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.True(t, result.Passed)
	assert.Greater(t, result.InSample.TotalReturn, 0.0)
	assert.Greater(t, result.OutSample.TotalReturn, 0.0)
	assert.GreaterOrEqual(t, result.PassRatio, walkForwardService.MinPassRatio)
}

func TestWalkForwardFailsOnOutOfSampleCollapse(t *testing.T) {
	// In-sample rises, out-of-sample bleeds: the long entry only wins early.
	closes := risingCloses(210, 100, 0.5)
	price := closes[len(closes)-1]
	for i := 0; i < 90; i++ {
		price *= 0.995
		closes = append(closes, price)
	}

	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 55 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	walkForwardService := NewWalkForwardService(NewBacktestService())
	result, err := walkForwardService.Validate(strategy, seriesFromCloses(closes),
		nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, "out-of-sample performance collapsed", result.Reason)
}
