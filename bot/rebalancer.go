package bot

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/avidalgo/selftuningbot/helpers"
)

// Rebalance runs one self-tuning pass from the command line, without a
// running engine. Useful from cron when the engine runs elsewhere.
func (t *Trader) Rebalance(c *cli.Context) error {
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

	summary, err := d.rebalancerService.Rebalance(d.strategies, &series)
	if err != nil {
		return err
	}

	for _, change := range summary.Changes {
		helpers.Logger.Infoln(fmt.Sprintf("  %s %s: %s", change.StrategyID, change.ChangeType, change.Reason))
	}
	return nil
}
