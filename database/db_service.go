package database

import (
	"time"

	database "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type DBService struct {
	DB *gorm.DB
}

// NewDBService opens a mysql connection and migrates the schema.
func NewDBService(dbHost string, dbPort string, dbName string, dbUser string, dbPass string) (*DBService, error) {
	dsn := dbUser + ":" + dbPass + "@tcp(" + dbHost + ":" + dbPort + ")/" + dbName + "?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return newDBService(db)
}

// NewSQLiteDBService opens a file-backed sqlite database. ":memory:" works
// too, which is what the tests use.
func NewSQLiteDBService(path string) (*DBService, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return newDBService(db)
}

func newDBService(db *gorm.DB) (*DBService, error) {
	dbs := &DBService{DB: db}
	err := dbs.DB.AutoMigrate(
		&database.Session{},
		&database.StrategyAllocation{},
		&database.Trade{},
		&database.StrategyConfig{},
		&database.StrategyLesson{},
		&database.StrategyAdaptive{},
		&database.BacktestResult{},
		&database.RebalanceLog{},
		&database.DailyPerformance{},
		&database.EngineState{},
	)
	if err != nil {
		return nil, err
	}
	return dbs, nil
}

// Transaction runs fn inside a single database transaction. The ledger
// services use it to keep allocation debits and trade rows atomic.
func (dbs *DBService) Transaction(fn func(tx *gorm.DB) error) error {
	return dbs.DB.Transaction(fn)
}

// Sessions

func (dbs *DBService) GetActiveSession() (*database.Session, error) {
	var session database.Session
	err := dbs.DB.Where("status = ?", database.SessionActive).
		Order("started_at DESC").First(&session).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (dbs *DBService) CreateSession(symbol string, initialBalance float64, strategyCount int) (*database.Session, error) {
	allocationPerStrategy := 0.0
	if strategyCount > 0 {
		allocationPerStrategy = initialBalance / float64(strategyCount)
	}
	session := database.Session{
		Symbol:                symbol,
		Status:                database.SessionActive,
		InitialBalance:        initialBalance,
		StrategyCount:         strategyCount,
		AllocationPerStrategy: allocationPerStrategy,
		StartedAt:             time.Now().UTC(),
	}
	if err := dbs.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (dbs *DBService) EndSession(sessionID uint, finalBalance float64) error {
	now := time.Now().UTC()
	return dbs.DB.Model(&database.Session{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":        database.SessionEnded,
			"final_balance": finalBalance,
			"ended_at":      now,
		}).Error
}

// Allocations

func (dbs *DBService) CreateAllocations(allocations []database.StrategyAllocation) error {
	return dbs.DB.Create(&allocations).Error
}

func (dbs *DBService) GetAllocations(sessionID uint) ([]database.StrategyAllocation, error) {
	var allocations []database.StrategyAllocation
	err := dbs.DB.Where("session_id = ?", sessionID).Find(&allocations).Error
	return allocations, err
}

func (dbs *DBService) GetAllocation(sessionID uint, strategyID string) (*database.StrategyAllocation, error) {
	var allocation database.StrategyAllocation
	err := dbs.DB.Where("session_id = ? AND strategy_id = ?", sessionID, strategyID).
		First(&allocation).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &allocation, nil
}

// Trades

func (dbs *DBService) GetOpenTrade(sessionID uint, strategyID string) (*database.Trade, error) {
	var trade database.Trade
	err := dbs.DB.Where("session_id = ? AND strategy_id = ? AND exit_price IS NULL", sessionID, strategyID).
		First(&trade).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (dbs *DBService) GetOpenTrades(sessionID uint) ([]database.Trade, error) {
	var trades []database.Trade
	err := dbs.DB.Where("session_id = ? AND exit_price IS NULL", sessionID).Find(&trades).Error
	return trades, err
}

func (dbs *DBService) GetTrades(limit int) ([]database.Trade, error) {
	var trades []database.Trade
	err := dbs.DB.Order("entry_at DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

func (dbs *DBService) GetTradesClosedSince(since time.Time) ([]database.Trade, error) {
	var trades []database.Trade
	err := dbs.DB.Where("exit_at IS NOT NULL AND exit_at >= ?", since).Find(&trades).Error
	return trades, err
}

// TodayLoss sums today's realized losses as a positive number. Empty
// strategyID means all strategies.
func (dbs *DBService) TodayLoss(strategyID string) (float64, error) {
	todayStart := time.Now().UTC().Truncate(24 * time.Hour)
	var totalLoss float64
	query := dbs.DB.Model(&database.Trade{}).
		Select("COALESCE(SUM(CASE WHEN pnl < 0 THEN -pnl ELSE 0 END), 0)").
		Where("exit_at IS NOT NULL AND exit_at >= ?", todayStart)
	if strategyID != "" {
		query = query.Where("strategy_id = ?", strategyID)
	}
	err := query.Scan(&totalLoss).Error
	return totalLoss, err
}

// RecentClosedPnls returns realized pnls, most recent first.
func (dbs *DBService) RecentClosedPnls(strategyID string, limit int) ([]float64, error) {
	var pnls []float64
	query := dbs.DB.Model(&database.Trade{}).
		Select("pnl").
		Where("exit_at IS NOT NULL AND pnl IS NOT NULL").
		Order("exit_at DESC").Limit(limit)
	if strategyID != "" {
		query = query.Where("strategy_id = ?", strategyID)
	}
	err := query.Scan(&pnls).Error
	return pnls, err
}

// Strategy configs

func (dbs *DBService) GetStrategyConfigs() ([]database.StrategyConfig, error) {
	var configs []database.StrategyConfig
	err := dbs.DB.Find(&configs).Error
	return configs, err
}

func (dbs *DBService) GetStrategyConfig(strategyID string) (*database.StrategyConfig, error) {
	var config database.StrategyConfig
	err := dbs.DB.Where("strategy_id = ?", strategyID).First(&config).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (dbs *DBService) SaveStrategyConfig(config database.StrategyConfig) error {
	config.UpdatedAt = time.Now().UTC()
	return dbs.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"parameters", "weight", "enabled", "updated_at"}),
	}).Create(&config).Error
}

// Lessons

func (dbs *DBService) AddLesson(lesson database.StrategyLesson) error {
	return dbs.DB.Create(&lesson).Error
}

func (dbs *DBService) GetRecentLessons(strategyID string, limit int) ([]database.StrategyLesson, error) {
	var lessons []database.StrategyLesson
	err := dbs.DB.Where("strategy_id = ?", strategyID).
		Order("created_at DESC").Limit(limit).Find(&lessons).Error
	return lessons, err
}

func (dbs *DBService) GetAdaptiveThreshold(strategyID string) (*database.StrategyAdaptive, error) {
	var adaptive database.StrategyAdaptive
	err := dbs.DB.Where("strategy_id = ?", strategyID).First(&adaptive).Error
	if err == gorm.ErrRecordNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &adaptive, nil
}

func (dbs *DBService) SaveAdaptiveThreshold(strategyID string, threshold float64, winPatternCount int, lossPatternCount int) error {
	now := time.Now().UTC()
	adaptive := database.StrategyAdaptive{
		StrategyID:       strategyID,
		Threshold:        threshold,
		WinPatternCount:  winPatternCount,
		LossPatternCount: lossPatternCount,
		LastAnalyzedAt:   now,
		UpdatedAt:        now,
	}
	return dbs.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"threshold", "win_pattern_count", "loss_pattern_count", "last_analyzed_at", "updated_at",
		}),
	}).Create(&adaptive).Error
}

// Backtests and audit

func (dbs *DBService) AddBacktestResult(result database.BacktestResult) error {
	return dbs.DB.Create(&result).Error
}

func (dbs *DBService) GetBacktestResults(strategyID string, limit int) ([]database.BacktestResult, error) {
	var results []database.BacktestResult
	query := dbs.DB.Order("created_at DESC").Limit(limit)
	if strategyID != "" {
		query = query.Where("strategy_id = ?", strategyID)
	}
	err := query.Find(&results).Error
	return results, err
}

func (dbs *DBService) AddRebalanceLog(entry database.RebalanceLog) error {
	return dbs.DB.Create(&entry).Error
}

func (dbs *DBService) GetRebalanceLogs(limit int) ([]database.RebalanceLog, error) {
	var entries []database.RebalanceLog
	err := dbs.DB.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// Daily performance

func (dbs *DBService) UpsertDailyPerformance(performance database.DailyPerformance) error {
	return dbs.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"starting_balance", "ending_balance", "trade_count", "win_count", "pnl"}),
	}).Create(&performance).Error
}

func (dbs *DBService) GetDailyPerformance(limit int) ([]database.DailyPerformance, error) {
	var rows []database.DailyPerformance
	err := dbs.DB.Order("date DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// PeakEndingBalance returns the best daily ending balance on record, for
// drawdown tracking. Zero means no history yet.
func (dbs *DBService) PeakEndingBalance() (float64, error) {
	var peak float64
	err := dbs.DB.Model(&database.DailyPerformance{}).
		Select("COALESCE(MAX(ending_balance), 0)").Scan(&peak).Error
	return peak, err
}

// Engine state KV

func (dbs *DBService) GetState(key string) (string, error) {
	var state database.EngineState
	err := dbs.DB.Where("key = ?", key).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return state.Value, nil
}

func (dbs *DBService) SetState(key string, value string) error {
	state := database.EngineState{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	return dbs.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
}
