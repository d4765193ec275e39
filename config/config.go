package config

import (
	"os"
	"strconv"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
	"github.com/avidalgo/selftuningbot/models"
)

// Config holds every runtime knob of the engine. Values come from conf.env
// via godotenv (loaded in main's init) with sane paper-trading defaults.
type Config struct {
	Pair       string
	BaseAsset  string
	QuoteAsset string
	Interval   string

	TickInterval   time.Duration
	CandleCacheTTL time.Duration
	CandleLimit    int

	PaperTrading        bool
	PaperInitialBalance float64

	FeeRate      float64
	SlippageRate float64

	// EntrySizeWeights sizes entries as fractions of a strategy's initial
	// capital. Only the first weight is used while positions are single
	// entry; the rest reserve sizing for partial scale-ins.
	EntrySizeWeights []float64

	// PortfolioRiskGate additionally runs the portfolio-level risk check
	// on every per-strategy buy.
	PortfolioRiskGate bool

	APIAddr string

	DBDriver string
	DBHost   string
	DBPort   string
	DBName   string
	DBUser   string
	DBPass   string
	DBPath   string
}

func Load() *Config {
	return &Config{
		Pair:       getEnv("pair", "WLDUSDC"),
		BaseAsset:  getEnv("baseAsset", "WLD"),
		QuoteAsset: getEnv("quoteAsset", "USDC"),
		Interval:   getEnv("interval", "1m"),

		TickInterval:   getDuration("tickInterval", 5*time.Second),
		CandleCacheTTL: getDuration("candleCacheTTL", 30*time.Second),
		CandleLimit:    getInt("candleLimit", 200),

		PaperTrading:        getBool("paperTrading", true),
		PaperInitialBalance: getFloat("paperInitialBalance", 10000.0),

		FeeRate:      getFloat("feeRate", 0.001),
		SlippageRate: getFloat("slippageRate", 0.0005),

		EntrySizeWeights: []float64{0.20, 0.25, 0.25, 0.30},

		PortfolioRiskGate: getBool("portfolioRiskGate", true),

		APIAddr: getEnv("apiAddr", ":8080"),

		DBDriver: getEnv("dbDriver", "sqlite"),
		DBHost:   os.Getenv("dbHost"),
		DBPort:   getEnv("dbPort", "3306"),
		DBName:   getEnv("dbName", "selftuningbot"),
		DBUser:   os.Getenv("dbUser"),
		DBPass:   os.Getenv("dbPass"),
		DBPath:   getEnv("dbPath", "selftuningbot.db"),
	}
}

// DefaultRisk is the fallback profile for strategies whose category has no
// dedicated entry.
var DefaultRisk = models.RiskConfig{
	StopLossPercent:          3.0,
	TakeProfitPercent:        5.0,
	MaxPositionPercent:       80.0,
	MaxDailyLossPercent:      10.0,
	MaxDrawdownPercent:       25.0,
	MaxConsecutiveLosses:     10,
	ConsecutiveLossReduction: 0.7,
}

// categoryRisk tunes stop/target bands per strategy family. Mean reversion
// waits out noise with a wide stop and takes profit near the mean; trend
// followers hold through shakeouts for a larger target.
var categoryRisk = map[string]models.RiskConfig{
	"mean-reversion":  riskProfile(2.5, 3.5, 85.0),
	"trend-following": riskProfile(4.0, 8.0, 80.0),
	"breakout":        riskProfile(3.0, 6.0, 80.0),
	"momentum":        riskProfile(3.0, 5.0, 85.0),
	"divergence":      riskProfile(3.5, 7.0, 80.0),
	"order-flow":      riskProfile(2.0, 3.0, 90.0),
}

func riskProfile(stopLoss float64, takeProfit float64, maxPosition float64) models.RiskConfig {
	return models.RiskConfig{
		StopLossPercent:          stopLoss,
		TakeProfitPercent:        takeProfit,
		MaxPositionPercent:       maxPosition,
		MaxDailyLossPercent:      10.0,
		MaxDrawdownPercent:       25.0,
		MaxConsecutiveLosses:     10,
		ConsecutiveLossReduction: 0.7,
	}
}

func RiskForCategory(category string) models.RiskConfig {
	if cfg, ok := categoryRisk[category]; ok {
		return cfg
	}
	return DefaultRisk
}

func getEnv(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := str2duration.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
