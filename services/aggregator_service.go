package services

import (
	"fmt"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// AggregatorService folds per-strategy signals into a weighted consensus.
// A buy wins only when the buy score clearly beats the sell score and at
// least two strategies voted for it; same for sells.
type AggregatorService struct {
}

func NewAggregatorService() *AggregatorService {
	return &AggregatorService{}
}

type WeightedStrategy struct {
	Strategy   interfaces.Strategy
	Parameters map[string]float64
	Weight     float64
}

type WeightedSignal struct {
	Signal models.Signal
	Weight float64
}

func (as *AggregatorService) Aggregate(timeSeries *techan.TimeSeries, strategies []WeightedStrategy) models.AggregatedSignal {
	var signals []WeightedSignal
	for _, weighted := range strategies {
		signal, err := weighted.Strategy.Analyze(timeSeries, weighted.Parameters)
		if err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("aggregator: %s failed: %v", weighted.Strategy.Info().ID, err))
			continue
		}
		signals = append(signals, WeightedSignal{Signal: signal, Weight: weighted.Weight})
	}
	return as.Combine(signals)
}

// Combine folds already-computed signals into the consensus.
func (as *AggregatorService) Combine(signals []WeightedSignal) models.AggregatedSignal {
	aggregated := models.AggregatedSignal{FinalAction: models.ActionHold}

	for _, weighted := range signals {
		aggregated.Signals = append(aggregated.Signals, weighted.Signal)

		switch weighted.Signal.Action {
		case models.ActionBuy:
			aggregated.BuyScore += weighted.Signal.Confidence * weighted.Weight
			aggregated.BuyVotes++
		case models.ActionSell:
			aggregated.SellScore += weighted.Signal.Confidence * weighted.Weight
			aggregated.SellVotes++
		}
	}

	if aggregated.BuyScore > aggregated.SellScore*1.2 && aggregated.BuyVotes >= 2 {
		aggregated.FinalAction = models.ActionBuy
	} else if aggregated.SellScore > aggregated.BuyScore*1.2 && aggregated.SellVotes >= 2 {
		aggregated.FinalAction = models.ActionSell
	}

	return aggregated
}
