package strategies

import (
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

func seriesFromCloses(closes []float64) *techan.TimeSeries {
	series := techan.TimeSeries{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, close := range closes {
		candle := techan.NewCandle(techan.NewTimePeriod(start.Add(time.Duration(i)*time.Minute), time.Minute))
		candle.OpenPrice = big.NewDecimal(close)
		candle.ClosePrice = big.NewDecimal(close)
		candle.MaxPrice = big.NewDecimal(close * 1.001)
		candle.MinPrice = big.NewDecimal(close * 0.999)
		candle.Volume = big.NewDecimal(1000)
		series.AddCandle(candle)
	}
	return &series
}

func windowOf(series *techan.TimeSeries, length int) *techan.TimeSeries {
	window := techan.TimeSeries{}
	window.Candles = series.Candles[:length]
	return &window
}
