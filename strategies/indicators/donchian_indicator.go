package indicators

import (
	"github.com/sdcoffey/techan"
)

// NewDonchianUpperIndicator tracks the highest high over the window.
func NewDonchianUpperIndicator(series *techan.TimeSeries, window int) techan.Indicator {
	return techan.NewMaximumValueIndicator(techan.NewHighPriceIndicator(series), window)
}

// NewDonchianLowerIndicator tracks the lowest low over the window.
func NewDonchianLowerIndicator(series *techan.TimeSeries, window int) techan.Indicator {
	return techan.NewMinimumValueIndicator(techan.NewLowPriceIndicator(series), window)
}
