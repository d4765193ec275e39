package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/avidalgo/selftuningbot/bot"
)

func main() {
	trader := bot.Trader{}

	app := &cli.App{
		Name:  "selftuningbot",
		Usage: "multi-strategy trading engine that re-tunes itself daily",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the trading engine and the HTTP API",
				Action: func(c *cli.Context) error {
					return trader.Run(c)
				},
			},
			{
				Name:  "backtest",
				Usage: "backtest strategies against recent candles",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "strategy", Usage: "single strategy id (default: all)"},
					&cli.IntFlag{Name: "candles", Value: 1000, Usage: "number of candles to fetch"},
					&cli.BoolFlag{Name: "optimize", Usage: "grid search instead of a single run"},
				},
				Action: func(c *cli.Context) error {
					return trader.Backtest(c)
				},
			},
			{
				Name:  "rebalance",
				Usage: "run one self-tuning pass and exit",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "candles", Value: 1000, Usage: "number of candles to fetch"},
				},
				Action: func(c *cli.Context) error {
					return trader.Rebalance(c)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
