package strategies

import (
	"fmt"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// RSIBBStrategy buys oversold touches of the lower bollinger band and sells
// overbought touches of the upper one. Thresholds are relaxed to 35/65 for
// short timeframes.
type RSIBBStrategy struct {
}

func NewRSIBBStrategy() RSIBBStrategy {
	return RSIBBStrategy{}
}

func (s *RSIBBStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "rsi-bb",
		Name:     "RSI + Bollinger Bands",
		Category: "mean-reversion",
		DefaultParameters: map[string]float64{
			"rsiPeriod": 14,
			"bbPeriod":  20,
			"bbStdDev":  2,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"rsiPeriod": {Min: 7, Max: 21, Step: 1},
			"bbPeriod":  {Min: 15, Max: 25, Step: 1},
			"bbStdDev":  {Min: 1.5, Max: 2.5, Step: 0.1},
		},
	}
}

func (s *RSIBBStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	rsiPeriod := int(paramOr(params, "rsiPeriod", 14))
	bbPeriod := int(paramOr(params, "bbPeriod", 20))
	bbStdDev := paramOr(params, "bbStdDev", 2)

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < bbPeriod || lastCandleIndex < rsiPeriod+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	closePrices := techan.NewClosePriceIndicator(timeSeries)
	rsi := techan.NewRelativeStrengthIndexIndicator(closePrices, rsiPeriod)
	upperBand := indicators.NewBollingerUpperBandIndicator(closePrices, bbPeriod, bbStdDev)
	lowerBand := indicators.NewBollingerLowerBandIndicator(closePrices, bbPeriod, bbStdDev)

	rsiValue := rsi.Calculate(lastCandleIndex).Float()
	upper := upperBand.Calculate(lastCandleIndex).Float()
	lower := lowerBand.Calculate(lastCandleIndex).Float()
	price := timeSeries.Candles[lastCandleIndex].ClosePrice.Float()

	ind := map[string]float64{"rsi": rsiValue, "bbUpper": upper, "bbLower": lower, "price": price}

	if rsiValue < 35 && price <= lower {
		confidence := 0.5 + (35-rsiValue)/70
		reason := fmt.Sprintf("RSI %.1f oversold + lower band touch", rsiValue)
		return newSignal(info.ID, models.ActionBuy, confidence, reason, ind, timeSeries), nil
	}
	if rsiValue > 65 && price >= upper {
		confidence := 0.5 + (rsiValue-65)/70
		reason := fmt.Sprintf("RSI %.1f overbought + upper band touch", rsiValue)
		return newSignal(info.ID, models.ActionSell, confidence, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no setup", ind, timeSeries), nil
}
