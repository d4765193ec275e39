package services

import (
	"math"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// BacktestService replays a candle series through a strategy and measures
// the outcome. The simulation is fully deterministic: same series, same
// params, same result.
type BacktestService struct {
}

func NewBacktestService() *BacktestService {
	return &BacktestService{}
}

type simPosition struct {
	side       models.SideType
	entryPrice float64
	entryIndex int
	quantity   float64
}

// Run walks the series candle by candle, feeding the strategy only the
// history up to each candle. Entries need confidence >= 0.5 and are sized at
// 5% of the running balance; exits come from the fixed stop/target band, an
// opposite signal at confidence >= 0.6, or the end of the period.
func (bs *BacktestService) Run(strategy interfaces.Strategy, series *techan.TimeSeries,
	params map[string]float64, config models.BacktestConfig) (models.BacktestResult, error) {

	result := models.BacktestResult{
		StrategyID:     strategy.Info().ID,
		Parameters:     params,
		InitialBalance: config.InitialBalance,
		FinalBalance:   config.InitialBalance,
	}

	candles := series.Candles
	if len(candles) < 50 {
		return result, models.ErrInsufficientCandles
	}

	balance := config.InitialBalance
	peakBalance := balance
	maxDrawdown := 0.0
	var position *simPosition
	var trades []models.BacktestTrade

	// Warm-up so indicators have history to chew on.
	startIndex := int(float64(len(candles)) * 0.05)
	if startIndex < 50 {
		startIndex = 50
	}

	for i := startIndex; i < len(candles); i++ {
		window := subSeries(series, i)
		closePrice := candles[i].ClosePrice.Float()

		if position != nil {
			var pnlPercent float64
			if position.side == models.SideTypeBuy {
				pnlPercent = (closePrice - position.entryPrice) / position.entryPrice * 100
			} else {
				pnlPercent = (position.entryPrice - closePrice) / position.entryPrice * 100
			}

			if pnlPercent <= -config.StopLossPct || pnlPercent >= config.TakeProfitPct {
				reason := models.ExitTakeProfit
				if pnlPercent <= -config.StopLossPct {
					reason = models.ExitStopLoss
				}
				trade := closeSimPosition(position, i, closePrice, true, config, reason, candles)
				trades = append(trades, trade)
				balance += trade.Pnl
				position = nil
			}
		}

		signal, err := strategy.Analyze(window, params)
		if err == nil {
			if position == nil && signal.Action != models.ActionHold && signal.Confidence >= 0.5 {
				entryPrice := applySlippage(closePrice, signal.Action == models.ActionBuy, config.SlippageRate)
				positionSize := balance * 0.05
				quantity := positionSize / entryPrice
				fee := quantity * entryPrice * config.FeeRate

				if balance >= positionSize+fee {
					side := models.SideTypeBuy
					if signal.Action == models.ActionSell {
						side = models.SideTypeSell
					}
					position = &simPosition{
						side:       side,
						entryPrice: entryPrice,
						entryIndex: i,
						quantity:   quantity,
					}
					balance -= fee
				}
			} else if position != nil && signal.Action != models.ActionHold {
				opposite := (position.side == models.SideTypeBuy && signal.Action == models.ActionSell) ||
					(position.side == models.SideTypeSell && signal.Action == models.ActionBuy)

				if opposite && signal.Confidence >= 0.6 {
					trade := closeSimPosition(position, i, closePrice, true, config, models.ExitSignalReverse, candles)
					trades = append(trades, trade)
					balance += trade.Pnl
					position = nil
				}
			}
		}

		if balance > peakBalance {
			peakBalance = balance
		}
		if peakBalance > 0 {
			drawdown := (peakBalance - balance) / peakBalance * 100
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	if position != nil {
		lastIndex := len(candles) - 1
		lastClose := candles[lastIndex].ClosePrice.Float()
		trade := closeSimPosition(position, lastIndex, lastClose, false, config, models.ExitPeriodEnd, candles)
		trades = append(trades, trade)
		balance += trade.Pnl
	}

	return calculateMetrics(result, trades, config.InitialBalance, balance, maxDrawdown), nil
}

// subSeries exposes candles[0..index] without copying candle data.
func subSeries(series *techan.TimeSeries, index int) *techan.TimeSeries {
	window := techan.TimeSeries{}
	window.Candles = series.Candles[:index+1]
	return &window
}

func applySlippage(price float64, buying bool, slippageRate float64) float64 {
	if buying {
		return price * (1 + slippageRate)
	}
	return price * (1 - slippageRate)
}

func closeSimPosition(position *simPosition, exitIndex int, closePrice float64, slip bool,
	config models.BacktestConfig, reason models.ExitTrigger, candles []*techan.Candle) models.BacktestTrade {

	exitPrice := closePrice
	if slip {
		exitPrice = applySlippage(closePrice, position.side != models.SideTypeBuy, config.SlippageRate)
	}
	fee := position.quantity * exitPrice * config.FeeRate

	var pnl float64
	if position.side == models.SideTypeBuy {
		pnl = (exitPrice-position.entryPrice)*position.quantity - fee
	} else {
		pnl = (position.entryPrice-exitPrice)*position.quantity - fee
	}

	return models.BacktestTrade{
		EntryIndex: position.entryIndex,
		ExitIndex:  exitIndex,
		EntryPrice: position.entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   position.quantity,
		Pnl:        pnl,
		PnlPct:     pnl / (position.quantity * position.entryPrice) * 100,
		ExitReason: reason,
		EntryTime:  candles[position.entryIndex].Period.End,
		ExitTime:   candles[exitIndex].Period.End,
	}
}

func calculateMetrics(result models.BacktestResult, trades []models.BacktestTrade,
	initialBalance float64, finalBalance float64, maxDrawdown float64) models.BacktestResult {

	result.Trades = trades
	result.TradeCount = len(trades)
	result.FinalBalance = finalBalance
	result.MaxDrawdown = maxDrawdown

	if len(trades) == 0 {
		return result
	}

	totalProfit := 0.0
	totalLoss := 0.0
	wins := 0
	var pnls, returns []float64
	for _, trade := range trades {
		pnls = append(pnls, trade.Pnl)
		returns = append(returns, trade.PnlPct)
		if trade.Pnl > 0 {
			wins++
			totalProfit += trade.Pnl
		} else {
			totalLoss += math.Abs(trade.Pnl)
		}
	}

	result.TotalReturn = (finalBalance - initialBalance) / initialBalance * 100
	result.WinRate = float64(wins) / float64(len(trades))
	result.AvgTradePnl = helpers.Mean(pnls)

	if totalLoss > 0 {
		result.ProfitFactor = totalProfit / totalLoss
	} else if totalProfit > 0 {
		result.ProfitFactor = math.Inf(1)
	}

	avgReturn := helpers.Mean(returns)
	variance := 0.0
	for _, r := range returns {
		variance += (r - avgReturn) * (r - avgReturn)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev > 0 {
		result.Sharpe = avgReturn / stdDev * math.Sqrt(252)
	}

	return result
}
