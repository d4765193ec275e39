package strategies

import (
	"fmt"
	"math"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

// EMACrossoverStrategy enters on golden crosses of a fast EMA over a slow
// EMA and exits on dead crosses.
type EMACrossoverStrategy struct {
}

func NewEMACrossoverStrategy() EMACrossoverStrategy {
	return EMACrossoverStrategy{}
}

func (s *EMACrossoverStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "ema-crossover",
		Name:     "EMA Crossover",
		Category: "trend-following",
		DefaultParameters: map[string]float64{
			"fastPeriod": 5,
			"slowPeriod": 13,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"fastPeriod": {Min: 3, Max: 9, Step: 1},
			"slowPeriod": {Min: 10, Max: 21, Step: 1},
		},
	}
}

func (s *EMACrossoverStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	fastPeriod := int(paramOr(params, "fastPeriod", 5))
	slowPeriod := int(paramOr(params, "slowPeriod", 13))

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < slowPeriod+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	closePrices := techan.NewClosePriceIndicator(timeSeries)
	fast := techan.NewEMAIndicator(closePrices, fastPeriod)
	slow := techan.NewEMAIndicator(closePrices, slowPeriod)

	fastNow := fast.Calculate(lastCandleIndex).Float()
	fastPrev := fast.Calculate(lastCandleIndex - 1).Float()
	slowNow := slow.Calculate(lastCandleIndex).Float()
	slowPrev := slow.Calculate(lastCandleIndex - 1).Float()
	ind := map[string]float64{"fastEMA": fastNow, "slowEMA": slowNow}

	if fastPrev <= slowPrev && fastNow > slowNow {
		gap := (fastNow - slowNow) / slowNow * 100
		confidence := 0.6 + math.Min(gap*10, 0.3)
		reason := fmt.Sprintf("EMA golden cross (%d/%d)", fastPeriod, slowPeriod)
		return newSignal(info.ID, models.ActionBuy, confidence, reason, ind, timeSeries), nil
	}
	if fastPrev >= slowPrev && fastNow < slowNow {
		gap := (slowNow - fastNow) / slowNow * 100
		confidence := 0.6 + math.Min(gap*10, 0.3)
		reason := fmt.Sprintf("EMA dead cross (%d/%d)", fastPeriod, slowPeriod)
		return newSignal(info.ID, models.ActionSell, confidence, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no cross", ind, timeSeries), nil
}
