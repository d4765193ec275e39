package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/models"
)

func TestCheckExitCondition(t *testing.T) {
	config := models.RiskConfig{StopLossPercent: 3.0, TakeProfitPercent: 5.0}

	cases := []struct {
		name     string
		side     models.SideType
		entry    float64
		current  float64
		expected models.ExitTrigger
	}{
		{"long stop", models.SideTypeBuy, 100, 96.9, models.ExitStopLoss},
		{"long target", models.SideTypeBuy, 100, 105.1, models.ExitTakeProfit},
		{"long holds", models.SideTypeBuy, 100, 101, models.ExitNone},
		{"short stop", models.SideTypeSell, 100, 103.1, models.ExitStopLoss},
		{"short target", models.SideTypeSell, 100, 94.9, models.ExitTakeProfit},
		{"short holds", models.SideTypeSell, 100, 99, models.ExitNone},
		{"exact stop boundary", models.SideTypeBuy, 100, 97, models.ExitStopLoss},
		{"exact target boundary", models.SideTypeBuy, 100, 105, models.ExitTakeProfit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CheckExitCondition(tc.side, tc.entry, tc.current, config))
		})
	}
}

func closedTrade(strategyID string, pnl float64, exitAt time.Time) databaseModels.Trade {
	exitPrice := 100.0
	return databaseModels.Trade{
		SessionID:  1,
		StrategyID: strategyID,
		Symbol:     "WLDUSDC",
		Side:       "BUY",
		EntryPrice: 100,
		Quantity:   1,
		ExitPrice:  &exitPrice,
		Pnl:        &pnl,
		EntryAt:    exitAt.Add(-time.Minute),
		ExitAt:     &exitAt,
	}
}

func TestCheckStrategyRiskDailyLossLimit(t *testing.T) {
	dbService := newTestDB(t)
	riskService := NewRiskService(dbService)
	config := models.RiskConfig{MaxDailyLossPercent: 10, MaxConsecutiveLosses: 10, ConsecutiveLossReduction: 0.7}

	now := time.Now().UTC()
	trade := closedTrade("stub", -150, now)
	assert.Nil(t, dbService.DB.Create(&trade).Error)

	check, err := riskService.CheckStrategyRisk("stub", 1000, config)
	assert.Nil(t, err)
	assert.False(t, check.Allowed)
	assert.Contains(t, check.Reason, "daily loss limit")
}

func TestCheckStrategyRiskStreakReducesPosition(t *testing.T) {
	dbService := newTestDB(t)
	riskService := NewRiskService(dbService)
	config := models.RiskConfig{MaxDailyLossPercent: 90, MaxConsecutiveLosses: 3, ConsecutiveLossReduction: 0.7}

	now := time.Now().UTC()
	for i := 0; i < 4; i++ {
		trade := closedTrade("stub", -1, now.Add(time.Duration(i)*time.Minute))
		assert.Nil(t, dbService.DB.Create(&trade).Error)
	}

	check, err := riskService.CheckStrategyRisk("stub", 1000, config)
	assert.Nil(t, err)
	assert.True(t, check.Allowed)
	assert.Equal(t, 0.7, check.Reduction)
}

func TestCheckRiskHoldSignalBlocked(t *testing.T) {
	riskService := NewRiskService(newTestDB(t))

	check, err := riskService.CheckRisk(models.ActionHold, 100, 10000, models.RiskConfig{})
	assert.Nil(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, "hold signal", check.Reason)
}

func TestCheckRiskDrawdownGate(t *testing.T) {
	dbService := newTestDB(t)
	riskService := NewRiskService(dbService)
	config := models.RiskConfig{
		MaxDailyLossPercent: 50, MaxDrawdownPercent: 25,
		MaxPositionPercent: 80, MaxConsecutiveLosses: 10, ConsecutiveLossReduction: 0.7,
		StopLossPercent: 3, TakeProfitPercent: 5,
	}

	assert.Nil(t, dbService.UpsertDailyPerformance(databaseModels.DailyPerformance{
		Date: "2024-01-01", EndingBalance: 20000,
	}))

	// 14000 against a 20000 peak is a 30% drawdown.
	check, err := riskService.CheckRisk(models.ActionBuy, 100, 14000, config)
	assert.Nil(t, err)
	assert.False(t, check.Allowed)
	assert.Contains(t, check.Reason, "max drawdown")
}

func TestCheckRiskSizesPositionAndBands(t *testing.T) {
	dbService := newTestDB(t)
	riskService := NewRiskService(dbService)
	config := models.RiskConfig{
		MaxDailyLossPercent: 50, MaxDrawdownPercent: 25,
		MaxPositionPercent: 80, MaxConsecutiveLosses: 10, ConsecutiveLossReduction: 0.7,
		StopLossPercent: 3, TakeProfitPercent: 5,
	}

	check, err := riskService.CheckRisk(models.ActionBuy, 100, 10000, config)
	assert.Nil(t, err)
	assert.True(t, check.Allowed)
	assert.InDelta(t, 80.0, check.AdjustedQuantity, 1e-9)
	assert.InDelta(t, 97.0, check.StopLoss, 1e-9)
	assert.InDelta(t, 105.0, check.TakeProfit, 1e-9)
}
