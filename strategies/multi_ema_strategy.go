package strategies

import (
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

// MultiEMAStrategy trades only when three EMAs stack in order, taking the
// fresh fast/mid cross with high conviction and the sustained alignment with
// low conviction.
type MultiEMAStrategy struct {
}

func NewMultiEMAStrategy() MultiEMAStrategy {
	return MultiEMAStrategy{}
}

func (s *MultiEMAStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "multi-tf-ema",
		Name:     "Multi EMA Alignment",
		Category: "trend-following",
		DefaultParameters: map[string]float64{
			"fastEMA": 9,
			"midEMA":  21,
			"slowEMA": 50,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"fastEMA": {Min: 5, Max: 12, Step: 1},
			"midEMA":  {Min: 15, Max: 30, Step: 1},
			"slowEMA": {Min: 40, Max: 60, Step: 5},
		},
	}
}

func (s *MultiEMAStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	fastPeriod := int(paramOr(params, "fastEMA", 9))
	midPeriod := int(paramOr(params, "midEMA", 21))
	slowPeriod := int(paramOr(params, "slowEMA", 50))

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < slowPeriod+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	closePrices := techan.NewClosePriceIndicator(timeSeries)
	fast := techan.NewEMAIndicator(closePrices, fastPeriod)
	mid := techan.NewEMAIndicator(closePrices, midPeriod)
	slow := techan.NewEMAIndicator(closePrices, slowPeriod)

	fastNow := fast.Calculate(lastCandleIndex).Float()
	midNow := mid.Calculate(lastCandleIndex).Float()
	slowNow := slow.Calculate(lastCandleIndex).Float()
	fastPrev := fast.Calculate(lastCandleIndex - 1).Float()
	midPrev := mid.Calculate(lastCandleIndex - 1).Float()
	ind := map[string]float64{"fastEMA": fastNow, "midEMA": midNow, "slowEMA": slowNow}

	if fastNow > midNow && midNow > slowNow {
		if fastPrev <= midPrev {
			return newSignal(info.ID, models.ActionBuy, 0.75, "bullish EMA stack + fresh cross", ind, timeSeries), nil
		}
		return newSignal(info.ID, models.ActionBuy, 0.45, "bullish EMA stack holding", ind, timeSeries), nil
	}
	if fastNow < midNow && midNow < slowNow {
		if fastPrev >= midPrev {
			return newSignal(info.ID, models.ActionSell, 0.75, "bearish EMA stack + fresh cross", ind, timeSeries), nil
		}
		return newSignal(info.ID, models.ActionSell, 0.45, "bearish EMA stack holding", ind, timeSeries), nil
	}
	return holdSignal(info.ID, "EMAs not aligned", ind, timeSeries), nil
}
