package services

import (
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// WalkForwardService splits the series into an in-sample and an out-of-sample
// window and checks whether a parameter set keeps performing on data it was
// not tuned on. Candidates that only profit in-sample are overfit and fail.
type WalkForwardService struct {
	backtestService *BacktestService
	InSampleRatio   float64
	MinPassRatio    float64
}

func NewWalkForwardService(backtestService *BacktestService) *WalkForwardService {
	return &WalkForwardService{
		backtestService: backtestService,
		InSampleRatio:   0.7,
		MinPassRatio:    0.5,
	}
}

func (wf *WalkForwardService) Validate(strategy interfaces.Strategy, series *techan.TimeSeries,
	params map[string]float64, config models.BacktestConfig) (models.WalkForwardResult, error) {

	candles := series.Candles
	if len(candles) < 100 {
		return models.WalkForwardResult{Passed: false, Reason: "insufficient candles"}, nil
	}

	splitIndex := int(float64(len(candles)) * wf.InSampleRatio)
	inSample := techan.TimeSeries{}
	inSample.Candles = candles[:splitIndex]
	outSample := techan.TimeSeries{}
	outSample.Candles = candles[splitIndex:]

	// Both windows must clear the backtester's own candle floor, or Run
	// would reject the out-of-sample leg outright.
	if len(inSample.Candles) < 50 || len(outSample.Candles) < 50 {
		return models.WalkForwardResult{Passed: false, Reason: "split windows too small"}, nil
	}

	inResult, err := wf.backtestService.Run(strategy, &inSample, params, config)
	if err != nil {
		return models.WalkForwardResult{}, err
	}
	outResult, err := wf.backtestService.Run(strategy, &outSample, params, config)
	if err != nil {
		return models.WalkForwardResult{}, err
	}

	result := models.WalkForwardResult{
		InSample:  &inResult,
		OutSample: &outResult,
	}

	if inResult.TotalReturn <= 0 {
		result.Reason = "no in-sample edge"
		return result, nil
	}

	result.PassRatio = outResult.TotalReturn / inResult.TotalReturn
	if result.PassRatio >= wf.MinPassRatio && outResult.TotalReturn > 0 {
		result.Passed = true
	} else {
		result.Reason = "out-of-sample performance collapsed"
	}
	return result, nil
}
