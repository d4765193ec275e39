package models

import "time"

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is a single strategy's opinion about the current candle window.
// Confidence is always within [0, 1]; Indicators carries the raw values the
// decision was made on, so the learner can mine them later.
type Signal struct {
	StrategyID string             `json:"strategyId"`
	Action     Action             `json:"action"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
	Indicators map[string]float64 `json:"indicators"`
	Timestamp  time.Time          `json:"timestamp"`
}

func HoldSignal(strategyID string, reason string) Signal {
	return Signal{
		StrategyID: strategyID,
		Action:     ActionHold,
		Confidence: 0,
		Reason:     reason,
		Indicators: map[string]float64{},
		Timestamp:  time.Now(),
	}
}

// AggregatedSignal is the weighted consensus over all enabled strategies.
// It is informational: the engine trades per strategy, not on the consensus.
type AggregatedSignal struct {
	FinalAction Action   `json:"finalAction"`
	BuyScore    float64  `json:"buyScore"`
	SellScore   float64  `json:"sellScore"`
	BuyVotes    int      `json:"buyVotes"`
	SellVotes   int      `json:"sellVotes"`
	Signals     []Signal `json:"signals"`
}
