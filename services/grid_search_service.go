package services

import (
	"runtime"
	"sort"
	"sync"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// MaxCombinations caps how many parameter sets one grid search will
// backtest. Larger grids get evenly subsampled down to this.
const MaxCombinations = 500

// MinGridTrades discards parameter sets whose backtest barely traded:
// a score off two trades is noise, not signal.
const MinGridTrades = 5

type OptimizeMetric string

const (
	OptimizeSharpe  OptimizeMetric = "sharpe"
	OptimizeReturn  OptimizeMetric = "return"
	OptimizeWinRate OptimizeMetric = "winRate"
)

// GridSearchService sweeps a strategy's parameter ranges with backtests,
// fanning combinations out over a bounded worker pool.
type GridSearchService struct {
	backtestService *BacktestService
	workers         int
}

func NewGridSearchService(backtestService *BacktestService) *GridSearchService {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return &GridSearchService{backtestService: backtestService, workers: workers}
}

type scoredResult struct {
	result models.BacktestResult
	score  float64
}

// Search runs the full cartesian product of the strategy's parameter ranges
// (subsampled to MaxCombinations) and returns the best-scoring survivor.
// Best is nil when no combination produced enough trades.
func (gs *GridSearchService) Search(strategy interfaces.Strategy, series *techan.TimeSeries,
	optimizeFor OptimizeMetric, config models.BacktestConfig) (models.GridSearchResult, error) {

	combinations := generateCombinations(strategy.Info().ParameterRanges)
	total := len(combinations)
	if total > MaxCombinations {
		combinations = sampleCombinations(combinations, MaxCombinations)
	}

	jobs := make(chan map[string]float64)
	resultsCh := make(chan scoredResult, len(combinations))
	var wg sync.WaitGroup

	for w := 0; w < gs.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				result, err := gs.backtestService.Run(strategy, series, params, config)
				if err != nil || result.TradeCount < MinGridTrades {
					continue
				}
				resultsCh <- scoredResult{result: result, score: score(result, optimizeFor)}
			}
		}()
	}

	for _, params := range combinations {
		jobs <- params
	}
	close(jobs)
	wg.Wait()
	close(resultsCh)

	var scored []scoredResult
	for r := range resultsCh {
		scored = append(scored, r)
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	searchResult := models.GridSearchResult{
		TestedCombinations: len(combinations),
		TotalCombinations:  total,
	}
	if len(scored) > 0 {
		best := scored[0].result
		searchResult.Best = &best
		searchResult.BestScore = scored[0].score
		for _, r := range scored[1:] {
			if len(searchResult.Alternatives) == 5 {
				break
			}
			alternative := r.result
			alternative.Trades = nil
			searchResult.Alternatives = append(searchResult.Alternatives, alternative)
		}
	}
	return searchResult, nil
}

func score(result models.BacktestResult, optimizeFor OptimizeMetric) float64 {
	switch optimizeFor {
	case OptimizeReturn:
		return result.TotalReturn
	case OptimizeWinRate:
		return result.WinRate
	default:
		return result.Sharpe
	}
}

// generateCombinations expands parameter ranges into their cartesian
// product. Values are rounded to 3 decimals so float accumulation over
// fractional steps cannot drift the grid.
func generateCombinations(ranges map[string]models.ParameterRange) []map[string]float64 {
	keys := make([]string, 0, len(ranges))
	for key := range ranges {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	combinations := []map[string]float64{{}}
	for _, key := range keys {
		r := ranges[key]
		var values []float64
		for v := r.Min; v <= r.Max+1e-9; v += r.Step {
			values = append(values, helpers.Round3(v))
		}

		var expanded []map[string]float64
		for _, combination := range combinations {
			for _, value := range values {
				next := make(map[string]float64, len(combination)+1)
				for k, v := range combination {
					next[k] = v
				}
				next[key] = value
				expanded = append(expanded, next)
			}
		}
		combinations = expanded
	}
	return combinations
}

// sampleCombinations picks maxCount combinations with an even stride so the
// kept set still spans the whole grid.
func sampleCombinations(combinations []map[string]float64, maxCount int) []map[string]float64 {
	if len(combinations) <= maxCount {
		return combinations
	}
	step := float64(len(combinations)) / float64(maxCount)
	sampled := make([]map[string]float64, 0, maxCount)
	for i := 0; i < maxCount; i++ {
		index := int(float64(i) * step)
		if index > len(combinations)-1 {
			index = len(combinations) - 1
		}
		sampled = append(sampled, combinations[index])
	}
	return sampled
}
