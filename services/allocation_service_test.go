package services

import (
	"testing"

	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/stretchr/testify/assert"
)

func TestInitAllocationsSplitsEqually(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, err := dbService.CreateSession("WLDUSDC", 10000, 2)
	assert.Nil(t, err)
	assert.Equal(t, 2, session.StrategyCount)
	assert.Equal(t, 5000.0, session.AllocationPerStrategy)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha", "beta"}, 10000))

	allocations, err := allocationService.GetAllocations(session.ID)
	assert.Nil(t, err)
	assert.Len(t, allocations, 2)
	for _, allocation := range allocations {
		assert.Equal(t, 5000.0, allocation.InitialCapital)
		assert.Equal(t, 5000.0, allocation.CurrentCapital)
	}
}

func TestExecuteBuyDebitsAllocation(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	trade, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, -1, "{}")
	assert.Nil(t, err)
	assert.Equal(t, 100.0, trade.Quantity)
	assert.Equal(t, 1.0, trade.EntryFee)
	assert.True(t, trade.IsPaper)
	assert.True(t, trade.IsOpen())

	allocation, err := allocationService.GetAllocation(session.ID, "alpha")
	assert.Nil(t, err)
	assert.InDelta(t, 10000-1001, allocation.CurrentCapital, 1e-9)
}

func TestExecuteBuyRecordsExchangeFee(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, false)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	// A non-negative fee is the exchange's own number and wins over the
	// fee-rate estimate.
	trade, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, 2.5, "{}")
	assert.Nil(t, err)
	assert.Equal(t, 2.5, trade.EntryFee)
	assert.False(t, trade.IsPaper)

	allocation, err := allocationService.GetAllocation(session.ID, "alpha")
	assert.Nil(t, err)
	assert.InDelta(t, 10000-1002.5, allocation.CurrentCapital, 1e-9)
}

func TestExecuteBuyClampsToFreeCapital(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 1000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 1000))

	// Asking for more than the allocation holds gets clamped, fee included.
	_, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 5000, -1, "{}")
	assert.Nil(t, err)

	allocation, err := allocationService.GetAllocation(session.ID, "alpha")
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, allocation.CurrentCapital, 0.0)
	assert.InDelta(t, 0.0, allocation.CurrentCapital, 1e-6)
}

func TestExecuteBuyNeverOverdrawsOnOddCapital(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	// Capital values with no exact binary representation make the
	// clamped debit round above the stored balance without an exact cap.
	session, _ := dbService.CreateSession("WLDUSDC", 1000.37, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 1000.37))

	_, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 3.17, 5000, -1, "{}")
	assert.Nil(t, err)

	allocation, err := allocationService.GetAllocation(session.ID, "alpha")
	assert.Nil(t, err)
	assert.GreaterOrEqual(t, allocation.CurrentCapital, 0.0)
}

func TestExecuteBuyRejectsBadInputs(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 1000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 1000))

	_, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 0, 100, -1, "{}")
	assert.Equal(t, models.ErrZeroQuantity, err)

	_, err = allocationService.ExecuteBuy(session.ID, "missing", "WLDUSDC", 10, 100, -1, "{}")
	assert.Equal(t, models.ErrNotFound, err)
}

func TestClosePositionSettlesAndRecordsLesson(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	trade, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, -1,
		`{"indicators":{"rsi":28.5},"regime":"ranging"}`)
	assert.Nil(t, err)

	closed, err := allocationService.ClosePosition(trade.ID, 11, -1, models.ExitTakeProfit, `{"rsi":71.2}`)
	assert.Nil(t, err)
	assert.False(t, closed.IsOpen())

	// proceeds 1100, exit fee 1.1, entry value 1000, entry fee 1
	assert.InDelta(t, 97.9, *closed.Pnl, 1e-9)
	assert.InDelta(t, 97.9/1001*100, *closed.PnlPercent, 1e-9)
	assert.Equal(t, string(models.ExitTakeProfit), closed.ExitReason)

	allocation, err := allocationService.GetAllocation(session.ID, "alpha")
	assert.Nil(t, err)
	assert.InDelta(t, 10000-1001+1100-1.1, allocation.CurrentCapital, 1e-9)
	assert.Equal(t, 1, allocation.TradeCount)
	assert.InDelta(t, 97.9, allocation.TotalPnl, 1e-9)

	lessons, err := dbService.GetRecentLessons("alpha", 10)
	assert.Nil(t, err)
	assert.Len(t, lessons, 1)
	assert.Equal(t, databaseModels.OutcomeWin, lessons[0].Outcome)
	assert.Equal(t, "ranging", lessons[0].Regime)
	assert.Contains(t, lessons[0].Indicators, "rsi")
	assert.Contains(t, lessons[0].ExitIndicators, "rsi")
	assert.InDelta(t, 97.9/1001*100, lessons[0].PnlPercent, 1e-9)
	assert.GreaterOrEqual(t, lessons[0].HoldDuration, int64(0))
}

func TestClosePositionUsesExchangeFee(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, false)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	trade, _ := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, 2, "{}")

	closed, err := allocationService.ClosePosition(trade.ID, 11, 3, models.ExitSignal, "")
	assert.Nil(t, err)
	assert.Equal(t, 3.0, closed.ExitFee)

	// proceeds 1100, exit fee 3, entry value 1000, entry fee 2
	assert.InDelta(t, 95, *closed.Pnl, 1e-9)
}

func TestClosePositionIsExactlyOnce(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	trade, _ := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, -1, "{}")

	_, err := allocationService.ClosePosition(trade.ID, 11, -1, models.ExitSignal, "")
	assert.Nil(t, err)

	_, err = allocationService.ClosePosition(trade.ID, 12, -1, models.ExitSignal, "")
	assert.Equal(t, models.ErrNotFound, err)

	_, err = allocationService.ClosePosition(99999, 12, -1, models.ExitSignal, "")
	assert.Equal(t, models.ErrNotFound, err)

	allocation, _ := allocationService.GetAllocation(session.ID, "alpha")
	assert.Equal(t, 1, allocation.TradeCount)
}

func TestTotalBalanceMarksOpenPositions(t *testing.T) {
	dbService := newTestDB(t)
	allocationService := NewAllocationService(dbService, 0.001, true)

	session, _ := dbService.CreateSession("WLDUSDC", 10000, 1)
	assert.Nil(t, allocationService.InitAllocations(session.ID, []string{"alpha"}, 10000))

	_, err := allocationService.ExecuteBuy(session.ID, "alpha", "WLDUSDC", 10, 1000, -1, "{}")
	assert.Nil(t, err)

	// 8999 free + 100 units at 12
	total, err := allocationService.TotalBalance(session.ID, 12)
	assert.Nil(t, err)
	assert.InDelta(t, 10000-1001+1200, total, 1e-9)

	unrealized, err := allocationService.UnrealizedPnl(session.ID, 12)
	assert.Nil(t, err)
	assert.InDelta(t, 200, unrealized, 1e-9)
}
