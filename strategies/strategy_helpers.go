package strategies

import (
	"time"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

func paramOr(params map[string]float64, key string, fallback float64) float64 {
	if params != nil {
		if value, ok := params[key]; ok {
			return value
		}
	}
	return fallback
}

func candleTime(timeSeries *techan.TimeSeries) time.Time {
	return timeSeries.Candles[len(timeSeries.Candles)-1].Period.End
}

func averageVolume(timeSeries *techan.TimeSeries, window int) float64 {
	candles := timeSeries.Candles
	start := len(candles) - window
	if start < 0 {
		start = 0
	}
	total := 0.0
	count := 0
	for i := start; i < len(candles); i++ {
		total += candles[i].Volume.Float()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func newSignal(strategyID string, action models.Action, confidence float64, reason string,
	indicators map[string]float64, timeSeries *techan.TimeSeries) models.Signal {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return models.Signal{
		StrategyID: strategyID,
		Action:     action,
		Confidence: confidence,
		Reason:     reason,
		Indicators: indicators,
		Timestamp:  candleTime(timeSeries),
	}
}

func holdSignal(strategyID string, reason string, indicators map[string]float64,
	timeSeries *techan.TimeSeries) models.Signal {
	if indicators == nil {
		indicators = map[string]float64{}
	}
	return models.Signal{
		StrategyID: strategyID,
		Action:     models.ActionHold,
		Confidence: 0,
		Reason:     reason,
		Indicators: indicators,
		Timestamp:  candleTime(timeSeries),
	}
}
