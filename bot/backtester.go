package bot

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/services"
	"github.com/avidalgo/selftuningbot/strategies"
)

// Backtest runs a one-off backtest from the command line: either a single
// strategy with its stored (or default) parameters, or every strategy, and
// optionally a grid search instead of a single run.
func (t *Trader) Backtest(c *cli.Context) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}

	d.exchangeService.SetPair(d.config.Pair)
	d.exchangeService.ConfigureClient()
	series, err := d.exchangeService.GetSeries(d.config.Pair, d.config.Interval, c.Int("candles"))
	if err != nil {
		return fmt.Errorf("candle fetch failed: %w", err)
	}

	targets := d.strategies
	if strategyID := c.String("strategy"); strategyID != "" {
		strategy, err := strategies.StrategyFactory(strategyID)
		if err != nil {
			return err
		}
		targets = append(targets[:0:0], strategy)
	}

	backtestConfig := models.DefaultBacktestConfig()
	optimize := c.Bool("optimize")

	for _, strategy := range targets {
		info := strategy.Info()

		if optimize {
			gridResult, err := d.gridSearchService.Search(strategy, &series, services.OptimizeSharpe, backtestConfig)
			if err != nil {
				return err
			}
			if gridResult.Best == nil {
				helpers.Logger.Infoln(fmt.Sprintf("❌ %s: no parameter set survived (%d/%d combinations tested)",
					info.ID, gridResult.TestedCombinations, gridResult.TotalCombinations))
				continue
			}
			helpers.Logger.Infoln(fmt.Sprintf("✅ %s: best sharpe %.2f with %v (return %.2f%%, win rate %.0f%%, %d trades)",
				info.ID, gridResult.BestScore, gridResult.Best.Parameters,
				gridResult.Best.TotalReturn, gridResult.Best.WinRate*100, gridResult.Best.TradeCount))
			continue
		}

		result, err := d.backtestService.Run(strategy, &series, info.DefaultParameters, backtestConfig)
		if err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("❌ %s: %v", info.ID, err))
			continue
		}
		helpers.Logger.Infoln(fmt.Sprintf("📊 %s: return %.2f%%, win rate %.0f%%, sharpe %.2f, drawdown %.2f%%, %d trades",
			info.ID, result.TotalReturn, result.WinRate*100, result.Sharpe, result.MaxDrawdown, result.TradeCount))
	}
	return nil
}
