package models

import "time"

// StrategyTickOutcome records what one strategy did during a tick. A failed
// strategy never aborts the tick; its error lands here instead.
type StrategyTickOutcome struct {
	StrategyID string  `json:"strategyId"`
	Action     string  `json:"action"`
	Detail     string  `json:"detail,omitempty"`
	Signal     *Signal `json:"signal,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type TickResult struct {
	Timestamp  time.Time             `json:"timestamp"`
	Price      float64               `json:"price"`
	Regime     Regime                `json:"regime,omitempty"`
	Aggregated *AggregatedSignal     `json:"aggregated,omitempty"`
	Outcomes   []StrategyTickOutcome `json:"outcomes"`
	Skipped    bool                  `json:"skipped,omitempty"`
}

type LessonCheck struct {
	Factor float64 `json:"factor"`
	Reason string  `json:"reason"`
}
