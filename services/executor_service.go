package services

import (
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// ExecutorService turns decisions into fills. One order per strategy at a
// time: a second order while the first is in flight fails fast with
// ErrInProgress instead of queueing.
type ExecutorService struct {
	exchangeService   interfaces.ExchangeService
	allocationService *AllocationService
	paperMode         bool

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewExecutorService(exchangeService interfaces.ExchangeService, allocationService *AllocationService,
	paperMode bool) *ExecutorService {
	return &ExecutorService{
		exchangeService:   exchangeService,
		allocationService: allocationService,
		paperMode:         paperMode,
		inFlight:          map[string]bool{},
	}
}

func (es *ExecutorService) tryLock(strategyID string) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.inFlight[strategyID] {
		return false
	}
	es.inFlight[strategyID] = true
	return true
}

func (es *ExecutorService) unlock(strategyID string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.inFlight, strategyID)
}

// ExecuteBuy opens a position worth positionValue at the current price. In
// live mode the gateway order goes out first; a gateway failure leaves the
// ledger untouched.
func (es *ExecutorService) ExecuteBuy(sessionID uint, strategyID string, symbol string,
	price float64, positionValue float64, signalData string) (*databaseModels.Trade, error) {

	if !es.tryLock(strategyID) {
		return nil, models.ErrInProgress
	}
	defer es.unlock(strategyID)

	fillPrice := price
	entryFee := -1.0
	if !es.paperMode {
		quantity := positionValue / price
		fill, err := es.exchangeService.MarketOrder(symbol, models.SideTypeBuy, quantity)
		if err != nil {
			return nil, fmt.Errorf("buy order failed: %w", err)
		}
		fillPrice = fill.Price
		positionValue = fill.Price * fill.Quantity
		entryFee = fill.Fee
	}

	trade, err := es.allocationService.ExecuteBuy(sessionID, strategyID, symbol, fillPrice, positionValue, entryFee, signalData)
	if err != nil {
		return nil, err
	}
	helpers.Logger.Infoln(fmt.Sprintf("🔵 %s: bought %.6f %s @ %.6f", strategyID, trade.Quantity, symbol, fillPrice))
	return trade, nil
}

// ExecuteSell closes the given open trade at the current price.
// exitIndicators is the indicator snapshot at close time, empty if unknown.
func (es *ExecutorService) ExecuteSell(trade *databaseModels.Trade, price float64, reason models.ExitTrigger,
	exitIndicators string) (*databaseModels.Trade, error) {

	if !es.tryLock(trade.StrategyID) {
		return nil, models.ErrInProgress
	}
	defer es.unlock(trade.StrategyID)

	fillPrice := price
	exitFee := -1.0
	if !es.paperMode {
		fill, err := es.exchangeService.MarketOrder(trade.Symbol, models.SideTypeSell, trade.Quantity)
		if err != nil {
			return nil, fmt.Errorf("sell order failed: %w", err)
		}
		fillPrice = fill.Price
		exitFee = fill.Fee
	}

	closed, err := es.allocationService.ClosePosition(trade.ID, fillPrice, exitFee, reason, exitIndicators)
	if err != nil {
		return nil, err
	}
	if closed.Pnl != nil {
		helpers.Logger.Infoln(fmt.Sprintf("🔴 %s: sold %.6f %s @ %.6f (%s, pnl %.4f)",
			trade.StrategyID, trade.Quantity, trade.Symbol, fillPrice, reason, *closed.Pnl))
	}
	return closed, nil
}

// CheckAndClosePosition closes the trade if its stop or target is hit.
// A nil trade result means the position stays open.
func (es *ExecutorService) CheckAndClosePosition(trade *databaseModels.Trade, currentPrice float64,
	config models.RiskConfig) (*databaseModels.Trade, models.ExitTrigger, error) {

	trigger := CheckExitCondition(models.SideType(trade.Side), trade.EntryPrice, currentPrice, config)
	if trigger == models.ExitNone {
		return nil, models.ExitNone, nil
	}
	closed, err := es.ExecuteSell(trade, currentPrice, trigger, "")
	if err != nil {
		return nil, trigger, err
	}
	return closed, trigger, nil
}

// Liquidate force-closes a trade on session shutdown. Live orders retry a
// few times; when no market price is available the position is settled on
// paper at its entry price so the session can still end.
func (es *ExecutorService) Liquidate(trade *databaseModels.Trade, price float64) (*databaseModels.Trade, error) {
	if price <= 0 {
		helpers.Logger.Warnln(fmt.Sprintf("%s: no market price, settling %s at entry price", trade.StrategyID, trade.Symbol))
		return es.allocationService.ClosePosition(trade.ID, trade.EntryPrice, -1, models.ExitLiquidated, "")
	}

	exitFee := -1.0
	if !es.paperMode {
		policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		err := backoff.Retry(func() error {
			fill, err := es.exchangeService.MarketOrder(trade.Symbol, models.SideTypeSell, trade.Quantity)
			if err == nil {
				exitFee = fill.Fee
			}
			return err
		}, policy)
		if err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("%s: liquidation order failed after retries: %v", trade.StrategyID, err))
		}
	}

	return es.allocationService.ClosePosition(trade.ID, price, exitFee, models.ExitLiquidated, "")
}
