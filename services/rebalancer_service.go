package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// RebalancerService is the daily self-tuning pass: re-optimize each
// strategy's parameters on recent candles, keep only candidates that
// survive walk-forward validation, rescale weights by performance, and
// disable strategies that stopped winning. Every change lands in the audit
// log with its reason.
type RebalancerService struct {
	dbService          *database.DBService
	backtestService    *BacktestService
	gridSearchService  *GridSearchService
	walkForwardService *WalkForwardService
	regimeService      *RegimeService
}

func NewRebalancerService(dbService *database.DBService, backtestService *BacktestService,
	gridSearchService *GridSearchService, walkForwardService *WalkForwardService,
	regimeService *RegimeService) *RebalancerService {
	return &RebalancerService{
		dbService:          dbService,
		backtestService:    backtestService,
		gridSearchService:  gridSearchService,
		walkForwardService: walkForwardService,
		regimeService:      regimeService,
	}
}

type RebalanceSummary struct {
	StartedAt          time.Time                    `json:"startedAt"`
	Duration           time.Duration                `json:"duration"`
	StrategiesUpdated  int                          `json:"strategiesUpdated"`
	StrategiesDisabled int                          `json:"strategiesDisabled"`
	StrategiesEnabled  int                          `json:"strategiesEnabled"`
	Regime             models.RegimeAnalysis        `json:"regime"`
	Changes            []databaseModels.RebalanceLog `json:"changes"`
}

// Rebalance runs the full tuning pass over every given strategy.
func (rb *RebalancerService) Rebalance(strategies []interfaces.Strategy, series *techan.TimeSeries) (*RebalanceSummary, error) {
	startedAt := time.Now().UTC()
	summary := &RebalanceSummary{StartedAt: startedAt}

	if len(series.Candles) < 200 {
		rb.logChange(summary, "system", databaseModels.ChangeRisk, "0", "0", "insufficient candle history")
		return summary, nil
	}

	backtestConfig := models.DefaultBacktestConfig()

	for _, strategy := range strategies {
		strategyID := strategy.Info().ID

		currentParams, currentWeight, isEnabled := rb.loadConfig(strategy)

		gridResult, err := rb.gridSearchService.Search(strategy, series, OptimizeSharpe, backtestConfig)
		if err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("rebalance: grid search failed for %s: %v", strategyID, err))
			continue
		}

		newParams := currentParams
		if gridResult.Best != nil && gridResult.BestScore > 0 {
			wfResult, err := rb.walkForwardService.Validate(strategy, series, gridResult.Best.Parameters, backtestConfig)
			if err != nil {
				helpers.Logger.Errorln(fmt.Sprintf("rebalance: walk-forward failed for %s: %v", strategyID, err))
			} else if wfResult.Passed {
				newParams = gridResult.Best.Parameters
				reason := fmt.Sprintf("walk-forward passed (IS %.1f%% → OS %.1f%%)",
					wfResult.InSample.TotalReturn, wfResult.OutSample.TotalReturn)
				rb.logChange(summary, strategyID, databaseModels.ChangeParameters,
					marshalParams(currentParams), marshalParams(newParams), reason)
				summary.StrategiesUpdated++
			}
		}

		newResult, err := rb.backtestService.Run(strategy, series, newParams, backtestConfig)
		if err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("rebalance: backtest failed for %s: %v", strategyID, err))
			continue
		}

		newWeight := calculateWeight(newResult, currentWeight)
		if math.Abs(newWeight-currentWeight) > 0.05 {
			reason := fmt.Sprintf("win rate %.0f%%, sharpe %.2f", newResult.WinRate*100, newResult.Sharpe)
			rb.logChange(summary, strategyID, databaseModels.ChangeWeight,
				fmt.Sprintf("%.2f", currentWeight), fmt.Sprintf("%.2f", newWeight), reason)
		}

		newEnabled := isEnabled
		if isEnabled && newResult.WinRate < 0.35 && newResult.TradeCount >= 5 {
			newEnabled = false
			summary.StrategiesDisabled++
			rb.logChange(summary, strategyID, databaseModels.ChangeEnabled, "true", "false",
				fmt.Sprintf("win rate %.0f%% below 35%% floor", newResult.WinRate*100))
		} else if !isEnabled && newResult.WinRate > 0.55 && newResult.TradeCount >= 5 {
			newEnabled = true
			summary.StrategiesEnabled++
			rb.logChange(summary, strategyID, databaseModels.ChangeEnabled, "false", "true",
				fmt.Sprintf("win rate recovered to %.0f%%", newResult.WinRate*100))
		}

		if err := rb.dbService.SaveStrategyConfig(databaseModels.StrategyConfig{
			StrategyID: strategyID,
			Parameters: marshalParams(newParams),
			Weight:     newWeight,
			Enabled:    newEnabled,
		}); err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("rebalance: config save failed for %s: %v", strategyID, err))
		}

		rb.saveBacktestResult(strategyID, newResult, newParams)
	}

	regime := rb.regimeService.Detect(series)
	summary.Regime = regime
	if regime.Regime == models.RegimeVolatile && regime.Confidence > 0.7 {
		rb.logChange(summary, "system", databaseModels.ChangeRisk,
			`{"mode":"normal"}`,
			fmt.Sprintf(`{"mode":"conservative","atrRatio":%.2f}`, regime.ATRRatio),
			fmt.Sprintf("volatile market detected (ATR ratio %.1fx)", regime.ATRRatio))
	}
	if payload, err := json.Marshal(map[string]interface{}{
		"regime": regime.Regime, "confidence": regime.Confidence,
	}); err == nil {
		rb.dbService.SetState(databaseModels.StateRegime, string(payload))
	}

	summary.Duration = time.Since(startedAt)
	helpers.Logger.Infoln(fmt.Sprintf("⚖️ Rebalance done in %s: %d updated, %d disabled, %d enabled",
		summary.Duration.Round(time.Millisecond), summary.StrategiesUpdated,
		summary.StrategiesDisabled, summary.StrategiesEnabled))
	return summary, nil
}

func (rb *RebalancerService) loadConfig(strategy interfaces.Strategy) (map[string]float64, float64, bool) {
	info := strategy.Info()
	config, err := rb.dbService.GetStrategyConfig(info.ID)
	if err != nil {
		return info.DefaultParameters, 1.0, true
	}
	var params map[string]float64
	if json.Unmarshal([]byte(config.Parameters), &params) != nil || params == nil {
		params = info.DefaultParameters
	}
	return params, config.Weight, config.Enabled
}

func (rb *RebalancerService) logChange(summary *RebalanceSummary, strategyID string,
	changeType string, before string, after string, reason string) {
	entry := databaseModels.RebalanceLog{
		StrategyID: strategyID,
		ChangeType: changeType,
		Before:     before,
		After:      after,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	summary.Changes = append(summary.Changes, entry)
	if err := rb.dbService.AddRebalanceLog(entry); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("rebalance: audit log write failed: %v", err))
	}
}

func (rb *RebalancerService) saveBacktestResult(strategyID string, result models.BacktestResult, params map[string]float64) {
	profitFactor := result.ProfitFactor
	if math.IsInf(profitFactor, 1) {
		profitFactor = -1
	}
	err := rb.dbService.AddBacktestResult(databaseModels.BacktestResult{
		StrategyID:   strategyID,
		Parameters:   marshalParams(params),
		TotalReturn:  result.TotalReturn,
		WinRate:      result.WinRate,
		Sharpe:       result.Sharpe,
		MaxDrawdown:  result.MaxDrawdown,
		ProfitFactor: profitFactor,
		TradeCount:   result.TradeCount,
		Source:       "rebalance",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("rebalance: backtest result save failed for %s: %v", strategyID, err))
	}
}

// calculateWeight blends a performance composite (win rate 40%, sharpe 30%,
// return 30%) into the old weight, damped so one good day cannot triple a
// strategy's size. Too few trades keep the weight unchanged.
func calculateWeight(result models.BacktestResult, currentWeight float64) float64 {
	if result.TradeCount < 3 {
		return currentWeight
	}

	winScore := math.Min(result.WinRate/0.6, 1.5)
	sharpeScore := math.Min(math.Max(result.Sharpe, 0)/1.5, 1.5)
	returnScore := math.Min(math.Max(result.TotalReturn, 0)/5.0, 1.5)
	composite := winScore*0.4 + sharpeScore*0.3 + returnScore*0.3

	newWeight := helpers.Clamp(composite*1.5, 0.1, 3.0)
	return currentWeight*0.3 + newWeight*0.7
}

func marshalParams(params map[string]float64) string {
	payload, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(payload)
}
