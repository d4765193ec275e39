package services

import (
	"encoding/json"
	"time"

	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/models"
	"gorm.io/gorm"
)

// AllocationService is the per-strategy capital ledger. Every strategy
// trades only its own slice of the session capital; buys debit it, closes
// credit it back, and the two sides always move inside one transaction.
type AllocationService struct {
	dbService *database.DBService
	feeRate   float64
	paperMode bool
}

func NewAllocationService(dbService *database.DBService, feeRate float64, paperMode bool) *AllocationService {
	return &AllocationService{dbService: dbService, feeRate: feeRate, paperMode: paperMode}
}

// InitAllocations splits the session balance equally across strategies.
func (as *AllocationService) InitAllocations(sessionID uint, strategyIDs []string, totalBalance float64) error {
	if len(strategyIDs) == 0 {
		return nil
	}
	slice := totalBalance / float64(len(strategyIDs))
	allocations := make([]databaseModels.StrategyAllocation, 0, len(strategyIDs))
	for _, strategyID := range strategyIDs {
		allocations = append(allocations, databaseModels.StrategyAllocation{
			SessionID:      sessionID,
			StrategyID:     strategyID,
			InitialCapital: slice,
			CurrentCapital: slice,
			UpdatedAt:      time.Now().UTC(),
		})
	}
	return as.dbService.CreateAllocations(allocations)
}

// ExecuteBuy opens a position for the strategy. The requested position value
// is clamped to the free capital so the ledger can never go negative; the
// fee comes out of the same allocation. A negative entryFee means "estimate
// from the fee rate"; live fills pass the actual exchange commission.
func (as *AllocationService) ExecuteBuy(sessionID uint, strategyID string, symbol string,
	price float64, positionValue float64, entryFee float64, signalData string) (*databaseModels.Trade, error) {

	if price <= 0 || positionValue <= 0 {
		return nil, models.ErrZeroQuantity
	}

	var trade databaseModels.Trade
	err := as.dbService.Transaction(func(tx *gorm.DB) error {
		var allocation databaseModels.StrategyAllocation
		if err := tx.Where("session_id = ? AND strategy_id = ?", sessionID, strategyID).
			First(&allocation).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.ErrNotFound
			}
			return err
		}

		// Fee rides on top of the notional, so the spendable value is
		// capped below the free capital.
		maxValue := allocation.CurrentCapital / (1 + as.feeRate)
		if positionValue > maxValue {
			positionValue = maxValue
		}
		if positionValue <= 0 {
			return models.ErrZeroQuantity
		}

		quantity := positionValue / price
		fee := entryFee
		if fee < 0 {
			fee = positionValue * as.feeRate
		}

		// Rounding on the clamped value can push the debit an ulp past
		// the stored capital; cap it so the balance never dips below zero.
		debit := positionValue + fee
		if debit > allocation.CurrentCapital {
			debit = allocation.CurrentCapital
		}

		trade = databaseModels.Trade{
			SessionID:  sessionID,
			StrategyID: strategyID,
			Symbol:     symbol,
			Side:       string(models.SideTypeBuy),
			EntryPrice: price,
			Quantity:   quantity,
			EntryFee:   fee,
			IsPaper:    as.paperMode,
			SignalData: signalData,
			EntryAt:    time.Now().UTC(),
		}
		if err := tx.Create(&trade).Error; err != nil {
			return err
		}

		return tx.Model(&databaseModels.StrategyAllocation{}).
			Where("session_id = ? AND strategy_id = ?", sessionID, strategyID).
			Updates(map[string]interface{}{
				"current_capital": gorm.Expr("current_capital - ?", debit),
				"updated_at":      time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// ClosePosition settles the open trade at exitPrice. Closing a trade that is
// already closed, or that never existed, is a no-op returning ErrNotFound:
// the guarded update makes the close exactly-once even under concurrent
// callers. A negative exitFee means "estimate from the fee rate";
// exitIndicators is the indicator snapshot at close time, empty if unknown.
func (as *AllocationService) ClosePosition(tradeID uint, exitPrice float64, exitFee float64,
	reason models.ExitTrigger, exitIndicators string) (*databaseModels.Trade, error) {

	if exitPrice <= 0 {
		return nil, models.ErrZeroQuantity
	}

	var closed databaseModels.Trade
	err := as.dbService.Transaction(func(tx *gorm.DB) error {
		var trade databaseModels.Trade
		if err := tx.Where("id = ?", tradeID).First(&trade).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return models.ErrNotFound
			}
			return err
		}
		if !trade.IsOpen() {
			return models.ErrNotFound
		}

		proceeds := trade.Quantity * exitPrice
		fee := exitFee
		if fee < 0 {
			fee = proceeds * as.feeRate
		}
		entryValue := trade.Quantity * trade.EntryPrice
		pnl := proceeds - fee - entryValue - trade.EntryFee
		pnlPercent := 0.0
		if cost := entryValue + trade.EntryFee; cost > 0 {
			pnlPercent = pnl / cost * 100
		}
		now := time.Now().UTC()

		result := tx.Model(&databaseModels.Trade{}).
			Where("id = ? AND exit_price IS NULL", tradeID).
			Updates(map[string]interface{}{
				"exit_price":  exitPrice,
				"exit_fee":    fee,
				"pnl":         pnl,
				"pnl_percent": pnlPercent,
				"exit_reason": string(reason),
				"exit_at":     now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}

		if err := tx.Model(&databaseModels.StrategyAllocation{}).
			Where("session_id = ? AND strategy_id = ?", trade.SessionID, trade.StrategyID).
			Updates(map[string]interface{}{
				"current_capital": gorm.Expr("current_capital + ?", proceeds-fee),
				"trade_count":     gorm.Expr("trade_count + 1"),
				"total_pnl":       gorm.Expr("total_pnl + ?", pnl),
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Create(buildLesson(&trade, pnl, pnlPercent, exitIndicators, now)).Error; err != nil {
			return err
		}

		closed = trade
		closed.ExitPrice = &exitPrice
		closed.ExitFee = fee
		closed.Pnl = &pnl
		closed.PnlPercent = &pnlPercent
		closed.ExitReason = string(reason)
		closed.ExitAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

// buildLesson distills a closed trade for the learner: outcome plus the
// indicator snapshots the trade was opened and closed on.
func buildLesson(trade *databaseModels.Trade, pnl float64, pnlPercent float64,
	exitIndicators string, at time.Time) *databaseModels.StrategyLesson {

	outcome := databaseModels.OutcomeWin
	if pnl < 0 {
		outcome = databaseModels.OutcomeLoss
	}

	indicators := "{}"
	regime := ""
	if trade.SignalData != "" {
		var signalData struct {
			Indicators map[string]float64 `json:"indicators"`
			Regime     string             `json:"regime"`
		}
		if json.Unmarshal([]byte(trade.SignalData), &signalData) == nil {
			if payload, err := json.Marshal(signalData.Indicators); err == nil {
				indicators = string(payload)
			}
			regime = signalData.Regime
		}
	}

	return &databaseModels.StrategyLesson{
		StrategyID:     trade.StrategyID,
		Outcome:        outcome,
		Pnl:            pnl,
		PnlPercent:     pnlPercent,
		HoldDuration:   int64(at.Sub(trade.EntryAt).Seconds()),
		Indicators:     indicators,
		ExitIndicators: exitIndicators,
		Regime:         regime,
		CreatedAt:      at,
	}
}

func (as *AllocationService) GetAllocation(sessionID uint, strategyID string) (*databaseModels.StrategyAllocation, error) {
	return as.dbService.GetAllocation(sessionID, strategyID)
}

func (as *AllocationService) GetAllocations(sessionID uint) ([]databaseModels.StrategyAllocation, error) {
	return as.dbService.GetAllocations(sessionID)
}

func (as *AllocationService) GetOpenPosition(sessionID uint, strategyID string) (*databaseModels.Trade, error) {
	return as.dbService.GetOpenTrade(sessionID, strategyID)
}

func (as *AllocationService) GetOpenPositions(sessionID uint) ([]databaseModels.Trade, error) {
	return as.dbService.GetOpenTrades(sessionID)
}

// TotalBalance marks the whole session to market: free capital plus open
// positions at the given price.
func (as *AllocationService) TotalBalance(sessionID uint, markPrice float64) (float64, error) {
	allocations, err := as.dbService.GetAllocations(sessionID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, allocation := range allocations {
		total += allocation.CurrentCapital
	}

	openTrades, err := as.dbService.GetOpenTrades(sessionID)
	if err != nil {
		return 0, err
	}
	for _, trade := range openTrades {
		total += trade.Quantity * markPrice
	}
	return total, nil
}

// UnrealizedPnl values open positions against the mark price.
func (as *AllocationService) UnrealizedPnl(sessionID uint, markPrice float64) (float64, error) {
	openTrades, err := as.dbService.GetOpenTrades(sessionID)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, trade := range openTrades {
		total += trade.Quantity * (markPrice - trade.EntryPrice)
	}
	return total, nil
}
