package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/models"
)

func TestBacktestRejectsShortSeries(t *testing.T) {
	backtestService := NewBacktestService()
	strategy := &scriptedStrategy{id: "stub"}

	_, err := backtestService.Run(strategy, seriesFromCloses(flatCloses(40, 100)), nil, models.DefaultBacktestConfig())
	assert.Equal(t, models.ErrInsufficientCandles, err)
}

func TestBacktestTakeProfitTrade(t *testing.T) {
	closes := flatCloses(120, 100)
	for i := 61; i < 120; i++ {
		closes[i] = 110
	}

	// Single entry as soon as the warm-up ends.
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 51 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	backtestService := NewBacktestService()
	config := models.DefaultBacktestConfig()
	result, err := backtestService.Run(strategy, seriesFromCloses(closes), nil, config)
	assert.Nil(t, err)

	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, models.ExitTakeProfit, result.Trades[0].ExitReason)
	assert.Equal(t, 1.0, result.WinRate)
	assert.True(t, math.IsInf(result.ProfitFactor, 1))
	assert.Greater(t, result.FinalBalance, config.InitialBalance)
	// Entry pays slippage on top of the close.
	assert.InDelta(t, 100*(1+config.SlippageRate), result.Trades[0].EntryPrice, 1e-9)
}

func TestBacktestStopLossTrade(t *testing.T) {
	closes := flatCloses(120, 100)
	for i := 61; i < 120; i++ {
		closes[i] = 90
	}

	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 51 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	backtestService := NewBacktestService()
	config := models.DefaultBacktestConfig()
	result, err := backtestService.Run(strategy, seriesFromCloses(closes), nil, config)
	assert.Nil(t, err)

	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, models.ExitStopLoss, result.Trades[0].ExitReason)
	assert.Equal(t, 0.0, result.WinRate)
	assert.Equal(t, 0.0, result.ProfitFactor)
	assert.Less(t, result.Trades[0].Pnl, 0.0)
	assert.Less(t, result.FinalBalance, config.InitialBalance)
}

func TestBacktestPeriodEndClosesWithoutSlippage(t *testing.T) {
	closes := flatCloses(120, 100)

	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen == 110 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	backtestService := NewBacktestService()
	config := models.DefaultBacktestConfig()
	result, err := backtestService.Run(strategy, seriesFromCloses(closes), nil, config)
	assert.Nil(t, err)

	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, models.ExitPeriodEnd, result.Trades[0].ExitReason)
	assert.Equal(t, 100.0, result.Trades[0].ExitPrice)
}

func TestBacktestSignalReverseExit(t *testing.T) {
	closes := flatCloses(120, 100)

	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		switch windowLen {
		case 51:
			return models.ActionBuy, 0.9
		case 60:
			return models.ActionSell, 0.7
		}
		return models.ActionHold, 0
	}}

	backtestService := NewBacktestService()
	result, err := backtestService.Run(strategy, seriesFromCloses(closes), nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.Equal(t, 1, result.TradeCount)
	assert.Equal(t, models.ExitSignalReverse, result.Trades[0].ExitReason)
}

func TestBacktestLowConfidenceNeverEnters(t *testing.T) {
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		return models.ActionBuy, 0.4
	}}

	backtestService := NewBacktestService()
	config := models.DefaultBacktestConfig()
	result, err := backtestService.Run(strategy, seriesFromCloses(flatCloses(120, 100)), nil, config)
	assert.Nil(t, err)

	assert.Equal(t, 0, result.TradeCount)
	assert.Equal(t, config.InitialBalance, result.FinalBalance)
}

func TestBacktestIsDeterministic(t *testing.T) {
	series := seriesFromCloses(risingCloses(200, 100, 0.4))
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen%10 == 0 {
			return models.ActionBuy, 0.8
		}
		return models.ActionHold, 0
	}}

	backtestService := NewBacktestService()
	first, err := backtestService.Run(strategy, series, nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)
	second, err := backtestService.Run(strategy, series, nil, models.DefaultBacktestConfig())
	assert.Nil(t, err)

	assert.Equal(t, first.FinalBalance, second.FinalBalance)
	assert.Equal(t, first.TradeCount, second.TradeCount)
	assert.Equal(t, first.Sharpe, second.Sharpe)
}
