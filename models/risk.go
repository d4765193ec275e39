package models

type RiskConfig struct {
	StopLossPercent          float64 `json:"stopLossPercent"`
	TakeProfitPercent        float64 `json:"takeProfitPercent"`
	MaxPositionPercent       float64 `json:"maxPositionPercent"`
	MaxDailyLossPercent      float64 `json:"maxDailyLossPercent"`
	MaxDrawdownPercent       float64 `json:"maxDrawdownPercent"`
	MaxConsecutiveLosses     int     `json:"maxConsecutiveLosses"`
	ConsecutiveLossReduction float64 `json:"consecutiveLossReduction"`
}

// RiskCheck is the outcome of a pre-trade gate. When Allowed is true and a
// consecutive-loss streak is running, Reduction is the position scale factor
// to apply (1.0 otherwise).
type RiskCheck struct {
	Allowed          bool    `json:"allowed"`
	Reason           string  `json:"reason,omitempty"`
	AdjustedQuantity float64 `json:"adjustedQuantity,omitempty"`
	Reduction        float64 `json:"reduction"`
	StopLoss         float64 `json:"stopLoss"`
	TakeProfit       float64 `json:"takeProfit"`
}

type ExitTrigger string

const (
	ExitStopLoss   ExitTrigger = "stop_loss"
	ExitTakeProfit ExitTrigger = "take_profit"
	ExitSignal        ExitTrigger = "signal"
	ExitSignalReverse ExitTrigger = "signal_reverse"
	ExitPeriodEnd  ExitTrigger = "period_end"
	ExitLiquidated ExitTrigger = "liquidated"
	ExitNone       ExitTrigger = ""
)
