package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/models"
)

func TestEMACrossoverSignalsOnReversal(t *testing.T) {
	// Slow bleed, then a sharp recovery: the fast EMA must cross up through
	// the slow one exactly once during the recovery.
	closes := make([]float64, 0, 60)
	price := 100.0
	for i := 0; i < 40; i++ {
		closes = append(closes, price)
		price *= 0.997
	}
	for i := 0; i < 20; i++ {
		price *= 1.02
		closes = append(closes, price)
	}
	series := seriesFromCloses(closes)

	strategy := NewEMACrossoverStrategy()

	buyCount := 0
	for length := 20; length <= len(closes); length++ {
		signal, err := strategy.Analyze(windowOf(series, length), nil)
		assert.Nil(t, err)
		if signal.Action == models.ActionBuy {
			buyCount++
			assert.GreaterOrEqual(t, signal.Confidence, 0.6)
			assert.LessOrEqual(t, signal.Confidence, 0.9)
			// The cross happens during the recovery leg.
			assert.Greater(t, length, 40)
		}
		// The decline never produces a buy.
		if length <= 40 {
			assert.NotEqual(t, models.ActionBuy, signal.Action)
		}
	}
	assert.Equal(t, 1, buyCount)
}

func TestEMACrossoverHoldsWithoutCross(t *testing.T) {
	closes := make([]float64, 40)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1.005
	}

	strategy := NewEMACrossoverStrategy()
	signal, err := strategy.Analyze(seriesFromCloses(closes), nil)
	assert.Nil(t, err)
	assert.Equal(t, models.ActionHold, signal.Action)
	assert.Equal(t, "no cross", signal.Reason)
}

func TestEMACrossoverRespectsParameterOverrides(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}

	strategy := NewEMACrossoverStrategy()
	signal, err := strategy.Analyze(seriesFromCloses(closes),
		map[string]float64{"fastPeriod": 3, "slowPeriod": 50})
	assert.Nil(t, err)
	assert.Equal(t, models.ActionHold, signal.Action)
	assert.Equal(t, "insufficient candles", signal.Reason)
}
