package database

import "time"

type DailyPerformance struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Date            string    `gorm:"uniqueIndex" json:"date"`
	StartingBalance float64   `json:"startingBalance"`
	EndingBalance   float64   `json:"endingBalance"`
	TradeCount      int       `json:"tradeCount"`
	WinCount        int       `json:"winCount"`
	Pnl             float64   `json:"pnl"`
	CreatedAt       time.Time `json:"createdAt"`
}

// EngineState is a small KV store for run state, risk counters and the
// current regime, so a restart picks up where the process left off.
type EngineState struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	StateEngine = "engine_state"
	StateRisk   = "risk_state"
	StateRegime = "current_regime"
)
