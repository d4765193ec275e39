package strategies

import (
	"math"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// OBVDivergenceStrategy looks for price and on-balance volume pulling in
// opposite directions over a window, confirmed by a reversal candle (hammer
// or engulfing for longs, shooting star or engulfing for shorts).
type OBVDivergenceStrategy struct {
}

func NewOBVDivergenceStrategy() OBVDivergenceStrategy {
	return OBVDivergenceStrategy{}
}

func (s *OBVDivergenceStrategy) Info() models.StrategyInfo {
	return models.StrategyInfo{
		ID:       "obv-divergence",
		Name:     "OBV Divergence",
		Category: "divergence",
		DefaultParameters: map[string]float64{
			"divergenceWindow": 10,
		},
		ParameterRanges: map[string]models.ParameterRange{
			"divergenceWindow": {Min: 5, Max: 20, Step: 5},
		},
	}
}

func (s *OBVDivergenceStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	info := s.Info()
	window := int(paramOr(params, "divergenceWindow", 10))

	lastCandleIndex := len(timeSeries.Candles) - 1
	if lastCandleIndex < window+2 {
		return holdSignal(info.ID, "insufficient candles", nil, timeSeries), nil
	}

	obv := indicators.NewOnBalanceVolumeIndicator(timeSeries)
	obvNow := obv.Calculate(lastCandleIndex).Float()
	obvStart := obv.Calculate(lastCandleIndex - window + 1).Float()
	priceNow := timeSeries.Candles[lastCandleIndex].ClosePrice.Float()
	priceStart := timeSeries.Candles[lastCandleIndex-window+1].ClosePrice.Float()

	priceTrend := priceNow - priceStart
	obvTrend := obvNow - obvStart

	candle := timeSeries.Candles[lastCandleIndex]
	prevCandle := timeSeries.Candles[lastCandleIndex-1]
	open := candle.OpenPrice.Float()
	high := candle.MaxPrice.Float()
	low := candle.MinPrice.Float()
	body := math.Abs(priceNow - open)
	candleRange := high - low

	isHammer := candleRange > 0 && body/candleRange < 0.3 && (priceNow-low)/candleRange > 0.6
	isBullEngulf := prevCandle.ClosePrice.Float() < prevCandle.OpenPrice.Float() &&
		priceNow > open && priceNow > prevCandle.OpenPrice.Float()

	ind := map[string]float64{"obvTrend": obvTrend, "priceTrend": priceTrend}

	if priceTrend < 0 && obvTrend > 0 && (isHammer || isBullEngulf) {
		return newSignal(info.ID, models.ActionBuy, 0.7, "bullish OBV divergence + reversal candle", ind, timeSeries), nil
	}

	isShootingStar := candleRange > 0 && body/candleRange < 0.3 && (high-priceNow)/candleRange > 0.6
	isBearEngulf := prevCandle.ClosePrice.Float() > prevCandle.OpenPrice.Float() &&
		priceNow < open && priceNow < prevCandle.OpenPrice.Float()

	if priceTrend > 0 && obvTrend < 0 && (isShootingStar || isBearEngulf) {
		return newSignal(info.ID, models.ActionSell, 0.7, "bearish OBV divergence + reversal candle", ind, timeSeries), nil
	}
	return holdSignal(info.ID, "no divergence", ind, timeSeries), nil
}
