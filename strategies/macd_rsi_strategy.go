package strategies

import (
	"fmt"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

// MACDRSIStrategy takes MACD signal-line crosses only when RSI agrees with
// the direction, filtering crosses against the prevailing momentum.
type MACDRSIStrategy struct {
}

func NewMACDRSIStrategy() MACDRSIStrategy {
	return MACDRSIStrategy{}
}

func (s *MACDRSIStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "macd-rsi",
		Name:     "MACD + RSI",
		Category: "momentum",
		DefaultParameters: map[string]float64{
			"macdFast":   8,
			"macdSlow":   17,
			"macdSignal": 9,
			"rsiPeriod":  10,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"macdFast":   {Min: 5, Max: 12, Step: 1},
			"macdSlow":   {Min: 13, Max: 26, Step: 1},
			"macdSignal": {Min: 5, Max: 9, Step: 1},
			"rsiPeriod":  {Min: 7, Max: 14, Step: 1},
		},
	}
}

func (s *MACDRSIStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	macdFast := int(paramOr(params, "macdFast", 8))
	macdSlow := int(paramOr(params, "macdSlow", 17))
	macdSignal := int(paramOr(params, "macdSignal", 9))
	rsiPeriod := int(paramOr(params, "rsiPeriod", 10))

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < macdSlow+macdSignal+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	closePrices := techan.NewClosePriceIndicator(timeSeries)
	macd := techan.NewMACDIndicator(closePrices, macdFast, macdSlow)
	histogram := techan.NewMACDHistogramIndicator(macd, macdSignal)
	rsi := techan.NewRelativeStrengthIndexIndicator(closePrices, rsiPeriod)

	histNow := histogram.Calculate(lastCandleIndex).Float()
	histPrev := histogram.Calculate(lastCandleIndex - 1).Float()
	rsiNow := rsi.Calculate(lastCandleIndex).Float()
	rsiPrev := rsi.Calculate(lastCandleIndex - 1).Float()
	ind := map[string]float64{"macdHistogram": histNow, "rsi": rsiNow}

	if histPrev <= 0 && histNow > 0 && rsiNow < 45 && rsiNow > rsiPrev {
		reason := fmt.Sprintf("MACD golden cross + RSI %.1f rising", rsiNow)
		return newSignal(info.ID, models.ActionBuy, 0.6, reason, ind, timeSeries), nil
	}
	if histPrev >= 0 && histNow < 0 && rsiNow > 55 && rsiNow < rsiPrev {
		reason := fmt.Sprintf("MACD dead cross + RSI %.1f falling", rsiNow)
		return newSignal(info.ID, models.ActionSell, 0.6, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no cross", ind, timeSeries), nil
}
