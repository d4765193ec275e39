package services

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/avidalgo/selftuningbot/database"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/models"
)

const (
	// MinLessons is how many closed trades a strategy needs before its
	// history is allowed to influence new entries.
	MinLessons = 10

	minConfidenceBound = 0.3
	maxConfidenceBound = 0.8

	// DefaultThreshold applies until a strategy has adaptive data.
	DefaultThreshold = 0.3
)

// LearnerService mines a strategy's closed trades for indicator patterns.
// Entries resembling past losses get their confidence cut; entries
// resembling past wins get a small boost. It also tightens the minimum
// confidence floor when the recent win rate slides.
type LearnerService struct {
	dbService *database.DBService
}

func NewLearnerService(dbService *database.DBService) *LearnerService {
	return &LearnerService{dbService: dbService}
}

type indicatorStats struct {
	mean  float64
	std   float64
	count int
}

type patternAnalysis struct {
	winPatterns  map[string]indicatorStats
	lossPatterns map[string]indicatorStats
	winCount     int
	lossCount    int
	winRate      float64
}

func (ls *LearnerService) analyzePatterns(strategyID string) (*patternAnalysis, error) {
	lessons, err := ls.dbService.GetRecentLessons(strategyID, 50)
	if err != nil {
		return nil, err
	}
	if len(lessons) < MinLessons {
		return nil, nil
	}

	winValues := map[string][]float64{}
	lossValues := map[string][]float64{}
	winCount := 0
	for _, lesson := range lessons {
		var indicators map[string]float64
		if json.Unmarshal([]byte(lesson.Indicators), &indicators) != nil {
			continue
		}
		target := lossValues
		if lesson.Pnl > 0 {
			target = winValues
			winCount++
		}
		for key, value := range indicators {
			if math.IsNaN(value) {
				continue
			}
			target[key] = append(target[key], value)
		}
	}

	return &patternAnalysis{
		winPatterns:  computeIndicatorStats(winValues),
		lossPatterns: computeIndicatorStats(lossValues),
		winCount:     winCount,
		lossCount:    len(lessons) - winCount,
		winRate:      float64(winCount) / float64(len(lessons)),
	}, nil
}

// computeIndicatorStats needs at least 3 samples per indicator; below that
// a mean and deviation say nothing.
func computeIndicatorStats(values map[string][]float64) map[string]indicatorStats {
	stats := map[string]indicatorStats{}
	for key, samples := range values {
		if len(samples) < 3 {
			continue
		}
		mean := helpers.Mean(samples)
		variance := 0.0
		for _, v := range samples {
			variance += (v - mean) * (v - mean)
		}
		stats[key] = indicatorStats{
			mean:  mean,
			std:   math.Sqrt(variance / float64(len(samples))),
			count: len(samples),
		}
	}
	return stats
}

// CheckLessons compares the entry's indicator snapshot against the win and
// loss profiles. A value counts as matching a profile when it lands within
// one standard deviation of that profile's mean.
func (ls *LearnerService) CheckLessons(strategyID string, currentIndicators map[string]float64) (models.LessonCheck, error) {
	analysis, err := ls.analyzePatterns(strategyID)
	if err != nil {
		return models.LessonCheck{}, err
	}
	if analysis == nil {
		return models.LessonCheck{Factor: 1.0, Reason: "learning data insufficient"}, nil
	}
	if len(currentIndicators) == 0 {
		return models.LessonCheck{Factor: 1.0, Reason: "no indicators"}, nil
	}

	lossMatchCount := 0
	winMatchCount := 0
	totalChecked := 0

	for key, value := range currentIndicators {
		if math.IsNaN(value) {
			continue
		}
		lossStats, hasLoss := analysis.lossPatterns[key]
		winStats, hasWin := analysis.winPatterns[key]
		if !hasLoss && !hasWin {
			continue
		}
		totalChecked++

		if hasLoss && lossStats.std > 0 && math.Abs(value-lossStats.mean) <= lossStats.std {
			lossMatchCount++
		}
		if hasWin && winStats.std > 0 && math.Abs(value-winStats.mean) <= winStats.std {
			winMatchCount++
		}
	}

	if totalChecked == 0 {
		return models.LessonCheck{Factor: 1.0, Reason: "no comparable indicators"}, nil
	}

	lossMatchRatio := float64(lossMatchCount) / float64(totalChecked)
	winMatchRatio := float64(winMatchCount) / float64(totalChecked)

	if lossMatchRatio > 0.5 && winMatchRatio < 0.3 {
		return models.LessonCheck{
			Factor: 0.6 + 0.2*(1-lossMatchRatio),
			Reason: fmt.Sprintf("resembles loss pattern (%.0f%% match)", lossMatchRatio*100),
		}, nil
	}
	if winMatchRatio > 0.5 && lossMatchRatio < 0.3 {
		return models.LessonCheck{
			Factor: math.Min(1.1, 1.0+(winMatchRatio-0.5)*0.2),
			Reason: fmt.Sprintf("resembles win pattern (%.0f%% match)", winMatchRatio*100),
		}, nil
	}
	return models.LessonCheck{Factor: 1.0, Reason: "pattern neutral"}, nil
}

// AdaptiveThreshold returns the strategy's confidence floor.
func (ls *LearnerService) AdaptiveThreshold(strategyID string) float64 {
	adaptive, err := ls.dbService.GetAdaptiveThreshold(strategyID)
	if err != nil {
		return DefaultThreshold
	}
	return adaptive.Threshold
}

// UpdateAdaptiveThreshold recomputes the confidence floor from the last 20
// closed trades: the worse the recent win rate, the higher the bar.
func (ls *LearnerService) UpdateAdaptiveThreshold(strategyID string) error {
	lessons, err := ls.dbService.GetRecentLessons(strategyID, 20)
	if err != nil {
		return err
	}
	if len(lessons) < MinLessons {
		return nil
	}

	wins := 0
	for _, lesson := range lessons {
		if lesson.Pnl > 0 {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(lessons))

	threshold := 0.5
	if winRate < 0.3 {
		threshold = 0.7
	} else if winRate < 0.4 {
		threshold = 0.6
	} else if winRate > 0.55 {
		threshold = 0.5
	}
	threshold = helpers.Clamp(threshold, minConfidenceBound, maxConfidenceBound)

	return ls.dbService.SaveAdaptiveThreshold(strategyID, threshold, wins, len(lessons)-wins)
}

// UpdateAll refreshes the adaptive threshold for every given strategy.
func (ls *LearnerService) UpdateAll(strategyIDs []string) {
	for _, strategyID := range strategyIDs {
		if err := ls.UpdateAdaptiveThreshold(strategyID); err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("learner: threshold update failed for %s: %v", strategyID, err))
		}
	}
}
