package strategies

import (
	"fmt"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// DonchianBreakoutStrategy buys closes above the channel high when volume
// runs well above average, and sells channel-low breakdowns the same way.
type DonchianBreakoutStrategy struct {
}

func NewDonchianBreakoutStrategy() DonchianBreakoutStrategy {
	return DonchianBreakoutStrategy{}
}

func (s *DonchianBreakoutStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "donchian-breakout",
		Name:     "Donchian Channel Breakout",
		Category: "breakout",
		DefaultParameters: map[string]float64{
			"period":           20,
			"volumeMultiplier": 2.0,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"period":           {Min: 10, Max: 30, Step: 5},
			"volumeMultiplier": {Min: 1.5, Max: 3.0, Step: 0.5},
		},
	}
}

func (s *DonchianBreakoutStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	period := int(paramOr(params, "period", 20))
	volumeMultiplier := paramOr(params, "volumeMultiplier", 2.0)

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < period+1 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	// Channel over the candles before the current one, so the breakout
	// candle does not move its own reference.
	upperBand := indicators.NewDonchianUpperIndicator(timeSeries, period)
	lowerBand := indicators.NewDonchianLowerIndicator(timeSeries, period)

	upper := upperBand.Calculate(lastCandleIndex - 1).Float()
	lower := lowerBand.Calculate(lastCandleIndex - 1).Float()
	upperPrev := upperBand.Calculate(lastCandleIndex - 2).Float()
	lowerPrev := lowerBand.Calculate(lastCandleIndex - 2).Float()

	price := timeSeries.Candles[lastCandleIndex].ClosePrice.Float()
	prevClose := timeSeries.Candles[lastCandleIndex-1].ClosePrice.Float()
	volume := timeSeries.Candles[lastCandleIndex].Volume.Float()
	avgVolume := averageVolume(timeSeries, 20)

	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = volume / avgVolume
	}
	ind := map[string]float64{"dcUpper": upper, "dcLower": lower, "price": price, "volumeRatio": volumeRatio}

	if prevClose <= upperPrev && price > upper && volume > avgVolume*volumeMultiplier {
		reason := fmt.Sprintf("channel high %.4f broken on %.1fx volume", upper, volumeRatio)
		return newSignal(info.ID, models.ActionBuy, 0.65, reason, ind, timeSeries), nil
	}
	if prevClose >= lowerPrev && price < lower && volume > avgVolume*volumeMultiplier {
		reason := fmt.Sprintf("channel low %.4f broken on %.1fx volume", lower, volumeRatio)
		return newSignal(info.ID, models.ActionSell, 0.65, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "inside channel", ind, timeSeries), nil
}
