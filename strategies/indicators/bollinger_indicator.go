package indicators

import (
	"math"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

type bollingerBandIndicator struct {
	base   techan.Indicator
	window int
	sigma  float64
}

func NewBollingerUpperBandIndicator(base techan.Indicator, window int, sigma float64) techan.Indicator {
	return bollingerBandIndicator{base: base, window: window, sigma: sigma}
}

func NewBollingerLowerBandIndicator(base techan.Indicator, window int, sigma float64) techan.Indicator {
	return bollingerBandIndicator{base: base, window: window, sigma: -sigma}
}

func (bb bollingerBandIndicator) Calculate(index int) big.Decimal {
	start := index - bb.window + 1
	if start < 0 {
		start = 0
	}

	count := index - start + 1
	sum := 0.0
	for i := start; i <= index; i++ {
		sum += bb.base.Calculate(i).Float()
	}
	mean := sum / float64(count)

	variance := 0.0
	for i := start; i <= index; i++ {
		diff := bb.base.Calculate(i).Float() - mean
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(count))

	return big.NewDecimal(mean + bb.sigma*stdDev)
}
