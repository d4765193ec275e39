package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

func TestCalculateWeightKeepsCurrentOnFewTrades(t *testing.T) {
	result := models.BacktestResult{TradeCount: 2, WinRate: 1.0, Sharpe: 3, TotalReturn: 10}
	assert.Equal(t, 1.3, calculateWeight(result, 1.3))
}

func TestCalculateWeightBlendsTowardComposite(t *testing.T) {
	// Strong performance: every score saturates at 1.5, composite 1.5,
	// target weight 2.25, blended 30/70 against the current 1.0.
	result := models.BacktestResult{TradeCount: 20, WinRate: 0.9, Sharpe: 3.0, TotalReturn: 10}
	assert.InDelta(t, 1.0*0.3+2.25*0.7, calculateWeight(result, 1.0), 1e-9)
}

func TestCalculateWeightFloorsBadPerformance(t *testing.T) {
	result := models.BacktestResult{TradeCount: 20, WinRate: 0.0, Sharpe: -1, TotalReturn: -20}
	// Composite 0, clamped to the 0.1 floor, then blended.
	assert.InDelta(t, 2.0*0.3+0.1*0.7, calculateWeight(result, 2.0), 1e-9)
}

func newTestRebalancer(t *testing.T) *RebalancerService {
	backtestService := NewBacktestService()
	dbService := newTestDB(t)
	return NewRebalancerService(dbService, backtestService,
		NewGridSearchService(backtestService), NewWalkForwardService(backtestService),
		NewRegimeService())
}

func TestRebalanceAbortsOnShortSeries(t *testing.T) {
	rebalancer := newTestRebalancer(t)

	summary, err := rebalancer.Rebalance([]interfaces.Strategy{&scriptedStrategy{id: "stub"}},
		seriesFromCloses(flatCloses(120, 100)))
	assert.Nil(t, err)
	assert.Len(t, summary.Changes, 1)
	assert.Equal(t, "insufficient candle history", summary.Changes[0].Reason)
	assert.Equal(t, 0, summary.StrategiesUpdated)
}

func TestRebalanceDisablesLosingStrategy(t *testing.T) {
	rebalancer := newTestRebalancer(t)

	// Every entry stops out on the long slide.
	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen%10 == 0 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	summary, err := rebalancer.Rebalance([]interfaces.Strategy{strategy},
		seriesFromCloses(risingCloses(300, 100, -0.5)))
	assert.Nil(t, err)
	assert.Equal(t, 1, summary.StrategiesDisabled)

	config, err := rebalancer.dbService.GetStrategyConfig("stub")
	assert.Nil(t, err)
	assert.False(t, config.Enabled)
}

func TestRebalancePersistsConfigAndAudit(t *testing.T) {
	rebalancer := newTestRebalancer(t)

	strategy := &scriptedStrategy{id: "stub", script: func(windowLen int) (models.Action, float64) {
		if windowLen%5 == 0 {
			return models.ActionBuy, 0.9
		}
		return models.ActionHold, 0
	}}

	_, err := rebalancer.Rebalance([]interfaces.Strategy{strategy},
		seriesFromCloses(risingCloses(300, 100, 1)))
	assert.Nil(t, err)

	config, err := rebalancer.dbService.GetStrategyConfig("stub")
	assert.Nil(t, err)
	assert.True(t, config.Enabled)
	// A full winner pulls the weight above the neutral 1.0.
	assert.Greater(t, config.Weight, 1.0)

	results, err := rebalancer.dbService.GetBacktestResults("stub", 10)
	assert.Nil(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "rebalance", results[0].Source)

	state, err := rebalancer.dbService.GetState(databaseModels.StateRegime)
	assert.Nil(t, err)
	assert.Contains(t, state, "regime")
}
