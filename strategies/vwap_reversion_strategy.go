package strategies

import (
	"fmt"
	"math"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// VWAPReversionStrategy fades stretched moves away from the volume weighted
// average price when volume confirms the move.
type VWAPReversionStrategy struct {
}

func NewVWAPReversionStrategy() VWAPReversionStrategy {
	return VWAPReversionStrategy{}
}

func (s *VWAPReversionStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "vwap-reversion",
		Name:     "VWAP Reversion",
		Category: "mean-reversion",
		DefaultParameters: map[string]float64{
			"deviationPct":     0.2,
			"volumeMultiplier": 1.2,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"deviationPct":     {Min: 0.1, Max: 0.5, Step: 0.05},
			"volumeMultiplier": {Min: 1.0, Max: 2.0, Step: 0.1},
		},
	}
}

func (s *VWAPReversionStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < 21 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	deviationPct := paramOr(params, "deviationPct", 0.2)
	volumeMultiplier := paramOr(params, "volumeMultiplier", 1.2)

	vwap := indicators.NewVolumeWeightedAveragePriceIndicator(timeSeries, 20)
	vwapValue := vwap.Calculate(lastCandleIndex).Float()
	price := timeSeries.Candles[lastCandleIndex].ClosePrice.Float()
	volume := timeSeries.Candles[lastCandleIndex].Volume.Float()
	avgVolume := averageVolume(timeSeries, 20)

	deviation := (price - vwapValue) / vwapValue * 100
	volumeRatio := 0.0
	if avgVolume > 0 {
		volumeRatio = volume / avgVolume
	}
	ind := map[string]float64{"vwap": vwapValue, "price": price, "deviation": deviation, "volumeRatio": volumeRatio}

	if deviation < -deviationPct && volume > avgVolume*volumeMultiplier {
		confidence := 0.5 + math.Min(math.Abs(deviation)/2, 0.4)
		reason := fmt.Sprintf("%.2f%% below VWAP on rising volume", deviation)
		return newSignal(info.ID, models.ActionBuy, confidence, reason, ind, timeSeries), nil
	}
	if deviation > deviationPct && volume > avgVolume*volumeMultiplier {
		confidence := 0.5 + math.Min(deviation/2, 0.4)
		reason := fmt.Sprintf("%.2f%% above VWAP on rising volume", deviation)
		return newSignal(info.ID, models.ActionSell, confidence, reason, ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no setup", ind, timeSeries), nil
}
