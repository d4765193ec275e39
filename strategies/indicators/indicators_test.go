package indicators

import (
	"testing"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/stretchr/testify/assert"
)

func buildSeries(closes []float64, volumes []float64) *techan.TimeSeries {
	series := techan.TimeSeries{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, close := range closes {
		candle := techan.NewCandle(techan.NewTimePeriod(start.Add(time.Duration(i)*time.Minute), time.Minute))
		candle.OpenPrice = big.NewDecimal(close)
		candle.ClosePrice = big.NewDecimal(close)
		candle.MaxPrice = big.NewDecimal(close * 1.001)
		candle.MinPrice = big.NewDecimal(close * 0.999)
		volume := 1000.0
		if volumes != nil {
			volume = volumes[i]
		}
		candle.Volume = big.NewDecimal(volume)
		series.AddCandle(candle)
	}
	return &series
}

func TestADXWarmupReturnsZero(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	adx := NewAverageDirectionalIndexIndicator(buildSeries(closes, nil), 14)

	assert.Equal(t, 0.0, adx.Calculate(10).Float())
	assert.Equal(t, 0.0, adx.Calculate(27).Float())
}

func TestADXHighOnSteadyTrend(t *testing.T) {
	closes := make([]float64, 100)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1.01
	}
	adx := NewAverageDirectionalIndexIndicator(buildSeries(closes, nil), 14)

	// One-way movement drives DX to its ceiling.
	assert.Greater(t, adx.Calculate(99).Float(), 25.0)
}

func TestADXFlatMarketReadsZero(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	adx := NewAverageDirectionalIndexIndicator(buildSeries(closes, nil), 14)

	assert.Equal(t, 0.0, adx.Calculate(99).Float())
}

func TestOBVAccumulatesSignedVolume(t *testing.T) {
	closes := []float64{100, 101, 102, 101, 103}
	volumes := []float64{10, 20, 30, 40, 50}
	obv := NewOnBalanceVolumeIndicator(buildSeries(closes, volumes))

	// +20 +30 -40 +50
	assert.InDelta(t, 60.0, obv.Calculate(4).Float(), 1e-9)
}

func TestBollingerBandsStraddleTheMean(t *testing.T) {
	closes := []float64{100, 102, 98, 101, 99, 100, 102, 98, 101, 99,
		100, 102, 98, 101, 99, 100, 102, 98, 101, 99, 100}
	series := buildSeries(closes, nil)
	closePrices := techan.NewClosePriceIndicator(series)

	upper := NewBollingerUpperBandIndicator(closePrices, 20, 2).Calculate(20).Float()
	lower := NewBollingerLowerBandIndicator(closePrices, 20, 2).Calculate(20).Float()

	assert.Greater(t, upper, lower)
	assert.Greater(t, upper, 100.0)
	assert.Less(t, lower, 100.0)
}

func TestDonchianChannelTracksExtremes(t *testing.T) {
	closes := []float64{100, 105, 95, 102, 98, 101, 103, 97, 100, 104}
	series := buildSeries(closes, nil)

	upper := NewDonchianUpperIndicator(series, 10).Calculate(9).Float()
	lower := NewDonchianLowerIndicator(series, 10).Calculate(9).Float()

	assert.InDelta(t, 105*1.001, upper, 1e-9)
	assert.InDelta(t, 95*0.999, lower, 1e-9)
}
