package services

import (
	"encoding/json"
	"fmt"

	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/models"
)

// RiskService gates trades against daily loss caps, drawdown and losing
// streaks. Streaks shrink the position instead of blocking it.
type RiskService struct {
	dbService *database.DBService
}

func NewRiskService(dbService *database.DBService) *RiskService {
	return &RiskService{dbService: dbService}
}

type riskState struct {
	DailyLoss         float64 `json:"dailyLoss"`
	ConsecutiveLosses int     `json:"consecutiveLosses"`
}

// CheckExitCondition reports whether the open position hit its stop or
// target at the current price. Pure: no storage, no clock.
func CheckExitCondition(side models.SideType, entryPrice float64, currentPrice float64, config models.RiskConfig) models.ExitTrigger {
	var pnlPercent float64
	if side == models.SideTypeBuy {
		pnlPercent = (currentPrice - entryPrice) / entryPrice * 100
	} else {
		pnlPercent = (entryPrice - currentPrice) / entryPrice * 100
	}

	if pnlPercent <= -config.StopLossPercent {
		return models.ExitStopLoss
	}
	if pnlPercent >= config.TakeProfitPercent {
		return models.ExitTakeProfit
	}
	return models.ExitNone
}

// CheckStrategyRisk gates one strategy's entry against its own allocation.
func (rs *RiskService) CheckStrategyRisk(strategyID string, strategyBalance float64, config models.RiskConfig) (models.RiskCheck, error) {
	todayLoss, err := rs.dbService.TodayLoss(strategyID)
	if err != nil {
		return models.RiskCheck{}, err
	}

	maxDailyLoss := strategyBalance * config.MaxDailyLossPercent / 100
	if todayLoss >= maxDailyLoss {
		return models.RiskCheck{
			Allowed:   false,
			Reduction: 1.0,
			Reason:    fmt.Sprintf("strategy daily loss limit reached (%.2f/%.2f)", todayLoss, maxDailyLoss),
		}, nil
	}

	consecutive, err := rs.consecutiveLosses(strategyID)
	if err != nil {
		return models.RiskCheck{}, err
	}
	if consecutive >= config.MaxConsecutiveLosses {
		return models.RiskCheck{
			Allowed:   true,
			Reduction: config.ConsecutiveLossReduction,
			Reason: fmt.Sprintf("%d consecutive losses, scaling position to %.0f%%",
				consecutive, config.ConsecutiveLossReduction*100),
		}, nil
	}

	return models.RiskCheck{Allowed: true, Reduction: 1.0}, nil
}

// CheckRisk is the portfolio-level gate: daily loss over all strategies,
// drawdown against the best recorded day, and position sizing off the total
// balance.
func (rs *RiskService) CheckRisk(action models.Action, currentPrice float64, totalBalance float64, config models.RiskConfig) (models.RiskCheck, error) {
	if action == models.ActionHold {
		return models.RiskCheck{Allowed: false, Reduction: 1.0, Reason: "hold signal"}, nil
	}
	isBuy := action == models.ActionBuy

	todayLoss, err := rs.dbService.TodayLoss("")
	if err != nil {
		return models.RiskCheck{}, err
	}
	maxDailyLoss := totalBalance * config.MaxDailyLossPercent / 100
	if todayLoss >= maxDailyLoss {
		return models.RiskCheck{
			Allowed:   false,
			Reduction: 1.0,
			Reason:    fmt.Sprintf("daily loss limit reached (%.2f/%.2f)", todayLoss, maxDailyLoss),
		}, nil
	}

	peak, err := rs.dbService.PeakEndingBalance()
	if err != nil {
		return models.RiskCheck{}, err
	}
	if peak > 0 {
		drawdown := (peak - totalBalance) / peak * 100
		if drawdown >= config.MaxDrawdownPercent {
			return models.RiskCheck{
				Allowed:   false,
				Reduction: 1.0,
				Reason:    fmt.Sprintf("max drawdown reached (%.1f%%/%.1f%%)", drawdown, config.MaxDrawdownPercent),
			}, nil
		}
	}

	consecutive, err := rs.consecutiveLosses("")
	if err != nil {
		return models.RiskCheck{}, err
	}
	reduction := 1.0
	reason := ""
	if consecutive >= config.MaxConsecutiveLosses {
		reduction = config.ConsecutiveLossReduction
		reason = fmt.Sprintf("%d consecutive losses, scaling position to %.0f%%", consecutive, reduction*100)
	}

	maxPositionValue := totalBalance * config.MaxPositionPercent / 100 * reduction
	quantity := maxPositionValue / currentPrice

	var stopLoss, takeProfit float64
	if isBuy {
		stopLoss = currentPrice * (1 - config.StopLossPercent/100)
		takeProfit = currentPrice * (1 + config.TakeProfitPercent/100)
	} else {
		stopLoss = currentPrice * (1 + config.StopLossPercent/100)
		takeProfit = currentPrice * (1 - config.TakeProfitPercent/100)
	}

	rs.saveState(riskState{DailyLoss: todayLoss, ConsecutiveLosses: consecutive})

	return models.RiskCheck{
		Allowed:          true,
		Reason:           reason,
		AdjustedQuantity: quantity,
		Reduction:        reduction,
		StopLoss:         stopLoss,
		TakeProfit:       takeProfit,
	}, nil
}

// ResetDaily clears the daily loss counter at the UTC rollover. The streak
// carries over: losses don't stop being losses at midnight.
func (rs *RiskService) ResetDaily() error {
	consecutive, err := rs.consecutiveLosses("")
	if err != nil {
		return err
	}
	return rs.saveState(riskState{DailyLoss: 0, ConsecutiveLosses: consecutive})
}

func (rs *RiskService) consecutiveLosses(strategyID string) (int, error) {
	pnls, err := rs.dbService.RecentClosedPnls(strategyID, 20)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, pnl := range pnls {
		if pnl < 0 {
			count++
		} else {
			break
		}
	}
	return count, nil
}

func (rs *RiskService) saveState(state riskState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return rs.dbService.SetState(databaseModels.StateRisk, string(payload))
}
