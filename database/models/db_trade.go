package database

import "time"

// Trade rows double as the position book: a row with nil ExitPrice is an
// open position, closing is an update of the same row.
type Trade struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SessionID  uint       `gorm:"index" json:"sessionId"`
	StrategyID string     `gorm:"index" json:"strategyId"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	EntryPrice float64    `json:"entryPrice"`
	Quantity   float64    `json:"quantity"`
	EntryFee   float64    `json:"entryFee"`
	ExitPrice  *float64   `json:"exitPrice"`
	ExitFee    float64    `json:"exitFee"`
	Pnl        *float64   `json:"pnl"`
	PnlPercent *float64   `json:"pnlPercent"`
	ExitReason string     `json:"exitReason"`
	IsPaper    bool       `json:"isPaper"`
	SignalData string     `json:"signalData"`
	EntryAt    time.Time  `json:"entryAt"`
	ExitAt     *time.Time `gorm:"index" json:"exitAt"`
}

func (t *Trade) IsOpen() bool {
	return t.ExitPrice == nil
}
