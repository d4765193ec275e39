package indicators

import (
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

type volumeWeightedAveragePriceIndicator struct {
	series *techan.TimeSeries
	window int
}

// NewVolumeWeightedAveragePriceIndicator averages the typical price weighted
// by volume over the trailing window.
func NewVolumeWeightedAveragePriceIndicator(series *techan.TimeSeries, window int) techan.Indicator {
	return volumeWeightedAveragePriceIndicator{series: series, window: window}
}

func (vwap volumeWeightedAveragePriceIndicator) Calculate(index int) big.Decimal {
	candles := vwap.series.Candles
	start := index - vwap.window + 1
	if start < 0 {
		start = 0
	}

	priceVolume := 0.0
	totalVolume := 0.0
	for i := start; i <= index; i++ {
		typical := (candles[i].MaxPrice.Float() + candles[i].MinPrice.Float() + candles[i].ClosePrice.Float()) / 3.0
		volume := candles[i].Volume.Float()
		priceVolume += typical * volume
		totalVolume += volume
	}

	if totalVolume == 0 {
		return candles[index].ClosePrice
	}
	return big.NewDecimal(priceVolume / totalVolume)
}
