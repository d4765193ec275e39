package strategies

import (
	"fmt"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// StochRSIMAStrategy buys the stochastic RSI crossing up out of the oversold
// zone while price holds above its EMA, and mirrors that for sells.
type StochRSIMAStrategy struct {
}

func NewStochRSIMAStrategy() StochRSIMAStrategy {
	return StochRSIMAStrategy{}
}

func (s *StochRSIMAStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "stochrsi-ma",
		Name:     "Stochastic RSI + MA",
		Category: "momentum",
		DefaultParameters: map[string]float64{
			"rsiPeriod":   14,
			"stochPeriod": 14,
			"kPeriod":     3,
			"dPeriod":     3,
			"emaPeriod":   21,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"rsiPeriod": {Min: 7, Max: 21, Step: 1},
			"emaPeriod": {Min: 9, Max: 21, Step: 1},
		},
	}
}

func (s *StochRSIMAStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	rsiPeriod := int(paramOr(params, "rsiPeriod", 14))
	stochPeriod := int(paramOr(params, "stochPeriod", 14))
	kPeriod := int(paramOr(params, "kPeriod", 3))
	emaPeriod := int(paramOr(params, "emaPeriod", 21))

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < rsiPeriod+stochPeriod+kPeriod || lastCandleIndex < emaPeriod+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	closePrices := techan.NewClosePriceIndicator(timeSeries)
	rsi := techan.NewRelativeStrengthIndexIndicator(closePrices, rsiPeriod)
	stochRSI := indicators.NewStochasticRelativeStrengthIndicator(rsi, stochPeriod)
	smoothK := techan.NewSimpleMovingAverage(stochRSI, kPeriod)
	ema := techan.NewEMAIndicator(closePrices, emaPeriod)

	kNow := smoothK.Calculate(lastCandleIndex).Float()
	kPrev := smoothK.Calculate(lastCandleIndex - 1).Float()
	emaValue := ema.Calculate(lastCandleIndex).Float()
	price := timeSeries.Candles[lastCandleIndex].ClosePrice.Float()
	ind := map[string]float64{"stochK": kNow, "ema": emaValue, "price": price}

	if kPrev < 20 && kNow >= 20 && price > emaValue {
		reason := fmt.Sprintf("StochRSI crossed up through 20, price above EMA(%d)", emaPeriod)
		return newSignal(info.ID, models.ActionBuy, 0.65, reason, ind, timeSeries), nil
	}
	if kPrev > 80 && kNow <= 80 && price < emaValue {
		reason := fmt.Sprintf("StochRSI crossed down through 80, price below EMA(%d)", emaPeriod)
		return newSignal(info.ID, models.ActionSell, 0.65, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no setup", ind, timeSeries), nil
}
