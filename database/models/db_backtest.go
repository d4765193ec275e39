package database

import "time"

type BacktestResult struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StrategyID   string    `gorm:"index" json:"strategyId"`
	Parameters   string    `json:"parameters"`
	TotalReturn  float64   `json:"totalReturn"`
	WinRate      float64   `json:"winRate"`
	Sharpe       float64   `json:"sharpe"`
	MaxDrawdown  float64   `json:"maxDrawdown"`
	ProfitFactor float64   `json:"profitFactor"`
	TradeCount   int       `json:"tradeCount"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RebalanceLog is the audit trail: every parameter, weight, enabled or
// risk change with its before/after values and the reason it was made.
type RebalanceLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StrategyID string    `gorm:"index" json:"strategyId"`
	ChangeType string    `json:"changeType"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	ChangeParameters = "parameters"
	ChangeWeight     = "weight"
	ChangeEnabled    = "enabled"
	ChangeRisk       = "risk"
)
