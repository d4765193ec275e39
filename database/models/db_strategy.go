package database

import "time"

type StrategyConfig struct {
	StrategyID string    `gorm:"primaryKey" json:"strategyId"`
	Parameters string    `json:"parameters"`
	Weight     float64   `json:"weight"`
	Enabled    bool      `json:"enabled"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StrategyLesson is one closed trade seen through the learner's eyes:
// outcome plus the indicator snapshots the trade was opened and closed on.
// HoldDuration is in seconds.
type StrategyLesson struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StrategyID     string    `gorm:"index" json:"strategyId"`
	Outcome        string    `json:"outcome"`
	Pnl            float64   `json:"pnl"`
	PnlPercent     float64   `json:"pnlPercent"`
	HoldDuration   int64     `json:"holdDuration"`
	Indicators     string    `json:"indicators"`
	ExitIndicators string    `json:"exitIndicators"`
	Regime         string    `json:"regime"`
	CreatedAt      time.Time `json:"createdAt"`
}

const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
)

type StrategyAdaptive struct {
	StrategyID       string    `gorm:"primaryKey" json:"strategyId"`
	Threshold        float64   `json:"threshold"`
	WinPatternCount  int       `json:"winPatternCount"`
	LossPatternCount int       `json:"lossPatternCount"`
	LastAnalyzedAt   time.Time `json:"lastAnalyzedAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
