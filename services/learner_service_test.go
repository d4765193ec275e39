package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
)

func addLesson(t *testing.T, dbService *database.DBService, strategyID string, pnl float64, rsi float64, at time.Time) {
	outcome := databaseModels.OutcomeWin
	if pnl <= 0 {
		outcome = databaseModels.OutcomeLoss
	}
	err := dbService.AddLesson(databaseModels.StrategyLesson{
		StrategyID: strategyID,
		Outcome:    outcome,
		Pnl:        pnl,
		Indicators: fmt.Sprintf(`{"rsi": %f}`, rsi),
		CreatedAt:  at,
	})
	assert.Nil(t, err)
}

func TestCheckLessonsNeedsHistory(t *testing.T) {
	dbService := newTestDB(t)
	learnerService := NewLearnerService(dbService)

	now := time.Now().UTC()
	for i := 0; i < MinLessons-1; i++ {
		addLesson(t, dbService, "stub", 1, 50, now.Add(time.Duration(i)*time.Minute))
	}

	check, err := learnerService.CheckLessons("stub", map[string]float64{"rsi": 50})
	assert.Nil(t, err)
	assert.Equal(t, 1.0, check.Factor)
	assert.Equal(t, "learning data insufficient", check.Reason)
}

func TestCheckLessonsFlagsLossPattern(t *testing.T) {
	dbService := newTestDB(t)
	learnerService := NewLearnerService(dbService)

	now := time.Now().UTC()
	// Losses cluster around RSI 30, wins around RSI 70.
	lossValues := []float64{28, 29, 30, 30, 31, 32, 29, 31}
	for i, value := range lossValues {
		addLesson(t, dbService, "stub", -5, value, now.Add(time.Duration(i)*time.Minute))
	}
	winValues := []float64{68, 69, 70, 71, 72}
	for i, value := range winValues {
		addLesson(t, dbService, "stub", 5, value, now.Add(time.Duration(100+i)*time.Minute))
	}

	check, err := learnerService.CheckLessons("stub", map[string]float64{"rsi": 30})
	assert.Nil(t, err)
	assert.Less(t, check.Factor, 1.0)
	assert.Contains(t, check.Reason, "loss pattern")

	check, err = learnerService.CheckLessons("stub", map[string]float64{"rsi": 70})
	assert.Nil(t, err)
	assert.Greater(t, check.Factor, 1.0)
	assert.LessOrEqual(t, check.Factor, 1.1)
	assert.Contains(t, check.Reason, "win pattern")
}

func TestCheckLessonsNeutralWithoutComparableIndicators(t *testing.T) {
	dbService := newTestDB(t)
	learnerService := NewLearnerService(dbService)

	now := time.Now().UTC()
	for i := 0; i < 12; i++ {
		addLesson(t, dbService, "stub", -1, 30, now.Add(time.Duration(i)*time.Minute))
	}

	check, err := learnerService.CheckLessons("stub", map[string]float64{"macd": 0.5})
	assert.Nil(t, err)
	assert.Equal(t, 1.0, check.Factor)
	assert.Equal(t, "no comparable indicators", check.Reason)
}

func TestAdaptiveThresholdDefaultsWithoutData(t *testing.T) {
	learnerService := NewLearnerService(newTestDB(t))
	assert.Equal(t, DefaultThreshold, learnerService.AdaptiveThreshold("stub"))
}

func TestUpdateAdaptiveThresholdTightensOnLosses(t *testing.T) {
	dbService := newTestDB(t)
	learnerService := NewLearnerService(dbService)

	now := time.Now().UTC()
	for i := 0; i < 16; i++ {
		addLesson(t, dbService, "stub", -1, 40, now.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 4; i++ {
		addLesson(t, dbService, "stub", 1, 60, now.Add(time.Duration(20+i)*time.Minute))
	}

	assert.Nil(t, learnerService.UpdateAdaptiveThreshold("stub"))
	assert.Equal(t, 0.7, learnerService.AdaptiveThreshold("stub"))

	adaptive, err := dbService.GetAdaptiveThreshold("stub")
	assert.Nil(t, err)
	assert.Equal(t, 4, adaptive.WinPatternCount)
	assert.Equal(t, 16, adaptive.LossPatternCount)
	assert.False(t, adaptive.LastAnalyzedAt.IsZero())
}
