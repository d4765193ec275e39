package services

import (
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/database"
	"github.com/avidalgo/selftuningbot/models"
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

func flatCloses(count int, price float64) []float64 {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func risingCloses(count int, start float64, stepPct float64) []float64 {
	closes := make([]float64, count)
	price := start
	for i := range closes {
		closes[i] = price
		price *= 1 + stepPct/100
	}
	return closes
}

// scriptedStrategy emits whatever its script says for the visible window
// length, holding otherwise.
type scriptedStrategy struct {
	id     string
	ranges map[string]models.ParameterRange
	script func(windowLen int) (models.Action, float64)
}

func (s *scriptedStrategy) Info() models.StrategyInfo {
	ranges := s.ranges
	if ranges == nil {
		ranges = map[string]models.ParameterRange{"a": {Min: 1, Max: 2, Step: 1}}
	}
	return models.StrategyInfo{
		ID:                s.id,
		Name:              s.id,
		Category:          "mean-reversion",
		DefaultParameters: map[string]float64{"a": 1},
		ParameterRanges:   ranges,
	}
}

func (s *scriptedStrategy) Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error) {
	action := models.ActionHold
	confidence := 0.0
	if s.script != nil {
		action, confidence = s.script(len(timeSeries.Candles))
	}
	return models.Signal{
		StrategyID: s.id,
		Action:     action,
		Confidence: confidence,
		Indicators: map[string]float64{"a": 1},
		Timestamp:  timeSeries.Candles[len(timeSeries.Candles)-1].Period.End,
	}, nil
}

func newTestDB(t interface{ Fatalf(string, ...interface{}) }) *database.DBService {
	dbService, err := database.NewSQLiteDBService(":memory:")
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	return dbService
}
