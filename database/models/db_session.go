package database

import "time"

type Session struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	Symbol                string     `json:"symbol"`
	Status                string     `gorm:"index" json:"status"`
	InitialBalance        float64    `json:"initialBalance"`
	FinalBalance          *float64   `json:"finalBalance"`
	StrategyCount         int        `json:"strategyCount"`
	AllocationPerStrategy float64    `json:"allocationPerStrategy"`
	StartedAt             time.Time  `json:"startedAt"`
	EndedAt               *time.Time `json:"endedAt"`
}

const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// StrategyAllocation is one strategy's slice of the session capital.
// CurrentCapital is free quote cash; open positions hold the rest.
type StrategyAllocation struct {
	SessionID      uint      `gorm:"primaryKey;autoIncrement:false" json:"sessionId"`
	StrategyID     string    `gorm:"primaryKey" json:"strategyId"`
	InitialCapital float64   `json:"initialCapital"`
	CurrentCapital float64   `json:"currentCapital"`
	TradeCount     int       `json:"tradeCount"`
	TotalPnl       float64   `json:"totalPnl"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
