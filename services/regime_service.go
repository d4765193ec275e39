package services

import (
	"math"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/strategies/indicators"
)

// RegimeService classifies the market into trending, ranging or volatile
// using ADX for trend strength, EMA ordering for direction and the ATR
// ratio for volatility expansion.
type RegimeService struct {
}

func NewRegimeService() *RegimeService {
	return &RegimeService{}
}

func (rs *RegimeService) Detect(series *techan.TimeSeries) models.RegimeAnalysis {
	candles := series.Candles
	if len(candles) < 50 {
		return models.RegimeAnalysis{
			Regime:                models.RegimeRanging,
			Confidence:            0,
			ATRRatio:              1,
			RecommendedCategories: []string{"mean-reversion"},
		}
	}

	lastCandleIndex := len(candles) - 1

	adx := indicators.NewAverageDirectionalIndexIndicator(series, 14)
	adxValue := adx.Calculate(lastCandleIndex).Float()

	atr := techan.NewAverageTrueRangeIndicator(series, 14)
	atrValue := atr.Calculate(lastCandleIndex).Float()

	// Volatility is judged relative to the recent norm, not in absolutes.
	atrWindow := 50
	atrSum := 0.0
	atrCount := 0
	for i := lastCandleIndex - atrWindow + 1; i <= lastCandleIndex; i++ {
		if i < 14 {
			continue
		}
		atrSum += atr.Calculate(i).Float()
		atrCount++
	}
	atrRatio := 1.0
	if atrCount > 0 {
		avgATR := atrSum / float64(atrCount)
		if avgATR > 0 {
			atrRatio = atrValue / avgATR
		}
	}

	closePrices := techan.NewClosePriceIndicator(series)
	ema21 := techan.NewEMAIndicator(closePrices, 21).Calculate(lastCandleIndex).Float()
	ema50 := techan.NewEMAIndicator(closePrices, 50).Calculate(lastCandleIndex).Float()
	price := candles[lastCandleIndex].ClosePrice.Float()

	trendDirection := 0
	if price > ema21 && ema21 > ema50 {
		trendDirection = 1
	} else if price < ema21 && ema21 < ema50 {
		trendDirection = -1
	}

	analysis := models.RegimeAnalysis{
		ADX:            adxValue,
		ATR:            atrValue,
		ATRRatio:       atrRatio,
		TrendDirection: trendDirection,
	}

	switch {
	case adxValue > 25 && trendDirection > 0:
		analysis.Regime = models.RegimeTrendingUp
		analysis.Confidence = math.Min((adxValue-20)/30, 1)
		analysis.RecommendedCategories = []string{"trend-following", "breakout", "momentum"}
	case adxValue > 25 && trendDirection < 0:
		analysis.Regime = models.RegimeTrendingDown
		analysis.Confidence = math.Min((adxValue-20)/30, 1)
		analysis.RecommendedCategories = []string{"trend-following", "divergence"}
	case adxValue > 25:
		analysis.Regime = models.RegimeRanging
		analysis.Confidence = 0.5
		analysis.RecommendedCategories = []string{"mean-reversion"}
	case atrRatio > 1.5:
		analysis.Regime = models.RegimeVolatile
		analysis.Confidence = math.Min((atrRatio-1)/2, 1)
		analysis.RecommendedCategories = []string{"mean-reversion", "order-flow"}
	default:
		analysis.Regime = models.RegimeRanging
		analysis.Confidence = math.Min((25-adxValue)/15, 1)
		analysis.RecommendedCategories = []string{"mean-reversion", "order-flow"}
	}

	return analysis
}
