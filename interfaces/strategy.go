package interfaces

import (
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

type (
	// Strategy analyzes a candle window under a parameter set and emits a
	// signal. Implementations are stateless: the same series and params
	// always produce the same signal, which keeps backtests reproducible.
	Strategy interface {
		Info() models.StrategyInfo
		Analyze(timeSeries *techan.TimeSeries, params map[string]float64) (models.Signal, error)
	}
)
