package indicators

import (
	"math"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

type averageDirectionalIndexIndicator struct {
	series *techan.TimeSeries
	window int
}

// NewAverageDirectionalIndexIndicator measures trend strength with Wilder's
// ADX. Values below the warm-up window come back as zero.
func NewAverageDirectionalIndexIndicator(series *techan.TimeSeries, window int) techan.Indicator {
	return averageDirectionalIndexIndicator{series: series, window: window}
}

func (adx averageDirectionalIndexIndicator) Calculate(index int) big.Decimal {
	if index < adx.window*2 {
		return big.NewDecimal(0.0)
	}

	candles := adx.series.Candles
	n := adx.window

	var smTR, smPlusDM, smMinusDM float64
	var adxValue float64
	dxCount := 0

	for i := 1; i <= index; i++ {
		high := candles[i].MaxPrice.Float()
		low := candles[i].MinPrice.Float()
		prevHigh := candles[i-1].MaxPrice.Float()
		prevLow := candles[i-1].MinPrice.Float()
		prevClose := candles[i-1].ClosePrice.Float()

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		upMove := high - prevHigh
		downMove := prevLow - low
		plusDM := 0.0
		minusDM := 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		if i <= n {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < n {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(n) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(n) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(n) + minusDM
		}

		if smTR == 0 {
			continue
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		diSum := plusDI + minusDI
		if diSum == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / diSum

		dxCount++
		if dxCount <= n {
			adxValue += dx
			if dxCount == n {
				adxValue /= float64(n)
			}
		} else {
			adxValue = (adxValue*float64(n-1) + dx) / float64(n)
		}
	}

	if dxCount < n {
		return big.NewDecimal(0.0)
	}
	return big.NewDecimal(adxValue)
}
