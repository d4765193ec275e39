package indicators

import (
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

type onBalanceVolumeIndicator struct {
	series *techan.TimeSeries
}

// NewOnBalanceVolumeIndicator accumulates volume signed by the close-to-close
// direction.
func NewOnBalanceVolumeIndicator(series *techan.TimeSeries) techan.Indicator {
	return onBalanceVolumeIndicator{series: series}
}

func (obv onBalanceVolumeIndicator) Calculate(index int) big.Decimal {
	candles := obv.series.Candles
	total := 0.0
	for i := 1; i <= index; i++ {
		closeNow := candles[i].ClosePrice.Float()
		closePrev := candles[i-1].ClosePrice.Float()
		if closeNow > closePrev {
			total += candles[i].Volume.Float()
		} else if closeNow < closePrev {
			total -= candles[i].Volume.Float()
		}
	}
	return big.NewDecimal(total)
}
