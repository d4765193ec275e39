package strategies

import (
	"fmt"

	"github.com/avidalgo/selftuningbot/interfaces"
)

// StrategyFactory resolves a strategy by its id.
func StrategyFactory(strategyID string) (interfaces.Strategy, error) {
	switch strategyID {
	case "rsi-bb":
		strategy := NewRSIBBStrategy()
		return &strategy, nil
	case "vwap-reversion":
		strategy := NewVWAPReversionStrategy()
		return &strategy, nil
	case "ema-crossover":
		strategy := NewEMACrossoverStrategy()
		return &strategy, nil
	case "multi-tf-ema":
		strategy := NewMultiEMAStrategy()
		return &strategy, nil
	case "donchian-breakout":
		strategy := NewDonchianBreakoutStrategy()
		return &strategy, nil
	case "macd-rsi":
		strategy := NewMACDRSIStrategy()
		return &strategy, nil
	case "stochrsi-ma":
		strategy := NewStochRSIMAStrategy()
		return &strategy, nil
	case "obv-divergence":
		strategy := NewOBVDivergenceStrategy()
		return &strategy, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategyID)
}

// All returns one instance of every shipped strategy, in a stable order.
func All() []interfaces.Strategy {
	rsiBB := NewRSIBBStrategy()
	vwapReversion := NewVWAPReversionStrategy()
	emaCrossover := NewEMACrossoverStrategy()
	multiEMA := NewMultiEMAStrategy()
	donchianBreakout := NewDonchianBreakoutStrategy()
	macdRSI := NewMACDRSIStrategy()
	stochRSIMA := NewStochRSIMAStrategy()
	obvDivergence := NewOBVDivergenceStrategy()

	return []interfaces.Strategy{
		&rsiBB,
		&vwapReversion,
		&emaCrossover,
		&multiEMA,
		&donchianBreakout,
		&macdRSI,
		&stochRSIMA,
		&obvDivergence,
	}
}
