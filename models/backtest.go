package models

import "time"

type BacktestConfig struct {
	InitialBalance float64 `json:"initialBalance"`
	FeeRate        float64 `json:"feeRate"`
	SlippageRate   float64 `json:"slippageRate"`
	StopLossPct    float64 `json:"stopLossPct"`
	TakeProfitPct  float64 `json:"takeProfitPct"`
}

// DefaultBacktestConfig mirrors live paper trading costs with the fixed
// simulation exit band.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialBalance: 10000.0,
		FeeRate:        0.001,
		SlippageRate:   0.0005,
		StopLossPct:    1.0,
		TakeProfitPct:  1.5,
	}
}

type BacktestTrade struct {
	EntryIndex int         `json:"entryIndex"`
	ExitIndex  int         `json:"exitIndex"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	Quantity   float64     `json:"quantity"`
	Pnl        float64     `json:"pnl"`
	PnlPct     float64     `json:"pnlPct"`
	ExitReason ExitTrigger `json:"exitReason"`
	EntryTime  time.Time   `json:"entryTime"`
	ExitTime   time.Time   `json:"exitTime"`
}

type BacktestResult struct {
	StrategyID     string             `json:"strategyId"`
	Parameters     map[string]float64 `json:"parameters"`
	InitialBalance float64            `json:"initialBalance"`
	FinalBalance   float64            `json:"finalBalance"`
	TotalReturn    float64            `json:"totalReturn"`
	WinRate        float64            `json:"winRate"`
	Sharpe         float64            `json:"sharpe"`
	MaxDrawdown    float64            `json:"maxDrawdown"`
	ProfitFactor   float64            `json:"profitFactor"`
	AvgTradePnl    float64            `json:"avgTradePnl"`
	TradeCount     int                `json:"tradeCount"`
	Trades         []BacktestTrade    `json:"trades,omitempty"`
}

type GridSearchResult struct {
	Best               *BacktestResult  `json:"best"`
	BestScore          float64          `json:"bestScore"`
	Alternatives       []BacktestResult `json:"alternatives"`
	TestedCombinations int              `json:"testedCombinations"`
	TotalCombinations  int              `json:"totalCombinations"`
}

type WalkForwardResult struct {
	Passed    bool            `json:"passed"`
	PassRatio float64         `json:"passRatio"`
	Reason    string          `json:"reason,omitempty"`
	InSample  *BacktestResult `json:"inSample,omitempty"`
	OutSample *BacktestResult `json:"outSample,omitempty"`
}
