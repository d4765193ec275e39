package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/config"
	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
)

// EngineService drives the whole bot: it owns the trading session, runs the
// tick loop, and wires signals through the learner and risk gates into the
// executor. Each strategy trades its own allocation independently; the
// weighted consensus is computed for observability but never overrides a
// strategy's own decision.
type EngineService struct {
	config            *config.Config
	dbService         *database.DBService
	exchangeService   interfaces.ExchangeService
	allocationService *AllocationService
	executorService   *ExecutorService
	riskService       *RiskService
	learnerService    *LearnerService
	regimeService     *RegimeService
	aggregatorService *AggregatorService
	strategies        []interfaces.Strategy

	running int32
	ticking int32
	stop    chan struct{}

	mu            sync.Mutex
	session       *databaseModels.Session
	lastTick      *models.TickResult
	lastError     string
	dayStart      string
	dayStartValue float64

	cacheMu        sync.Mutex
	cachedSeries   *techan.TimeSeries
	cacheFetchedAt time.Time
}

func NewEngineService(cfg *config.Config, dbService *database.DBService,
	exchangeService interfaces.ExchangeService, allocationService *AllocationService,
	executorService *ExecutorService, riskService *RiskService, learnerService *LearnerService,
	regimeService *RegimeService, aggregatorService *AggregatorService,
	strategies []interfaces.Strategy) *EngineService {
	return &EngineService{
		config:            cfg,
		dbService:         dbService,
		exchangeService:   exchangeService,
		allocationService: allocationService,
		executorService:   executorService,
		riskService:       riskService,
		learnerService:    learnerService,
		regimeService:     regimeService,
		aggregatorService: aggregatorService,
		strategies:        strategies,
	}
}

type EngineStatus struct {
	Running       bool                    `json:"running"`
	Session       *databaseModels.Session `json:"session,omitempty"`
	TotalBalance  float64                 `json:"totalBalance"`
	UnrealizedPnl float64                 `json:"unrealizedPnl"`
	LastTick      *models.TickResult      `json:"lastTick,omitempty"`
	LastError     string                  `json:"lastError,omitempty"`
}

// Start opens a fresh session and launches the tick loop. Any session left
// active by a previous run is liquidated and closed first so capital is
// never split across two ledgers.
func (en *EngineService) Start() error {
	if !atomic.CompareAndSwapInt32(&en.running, 0, 1) {
		return models.ErrAlreadyRunning
	}

	en.exchangeService.SetPair(en.config.Pair)
	en.exchangeService.ConfigureClient()

	if err := en.closeStaleSession(); err != nil {
		atomic.StoreInt32(&en.running, 0)
		return err
	}

	if !en.config.PaperTrading {
		if err := en.exchangeService.ConvertWallet(en.config.Pair, en.config.BaseAsset, en.config.QuoteAsset); err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("wallet conversion failed: %v", err))
		}
	}

	balance, err := en.exchangeService.GetTotalBalance(en.config.QuoteAsset)
	if err != nil {
		atomic.StoreInt32(&en.running, 0)
		return fmt.Errorf("cannot read %s balance: %w", en.config.QuoteAsset, err)
	}
	if balance <= 0 {
		atomic.StoreInt32(&en.running, 0)
		return fmt.Errorf("no %s available to trade", en.config.QuoteAsset)
	}

	session, err := en.dbService.CreateSession(en.config.Pair, balance, len(en.strategies))
	if err != nil {
		atomic.StoreInt32(&en.running, 0)
		return err
	}

	strategyIDs := make([]string, 0, len(en.strategies))
	for _, strategy := range en.strategies {
		strategyIDs = append(strategyIDs, strategy.Info().ID)
	}
	if err := en.allocationService.InitAllocations(session.ID, strategyIDs, balance); err != nil {
		atomic.StoreInt32(&en.running, 0)
		return err
	}

	en.mu.Lock()
	en.session = session
	en.dayStart = time.Now().UTC().Format("2006-01-02")
	en.dayStartValue = balance
	en.stop = make(chan struct{})
	en.mu.Unlock()

	en.saveEngineState()
	helpers.Logger.Infoln(fmt.Sprintf("✅ Session %d started on %s with %.2f %s across %d strategies",
		session.ID, en.config.Pair, balance, en.config.QuoteAsset, len(strategyIDs)))

	go en.loop()
	return nil
}

// Stop halts the loop, liquidates every open position and closes the session.
func (en *EngineService) Stop() error {
	if !atomic.CompareAndSwapInt32(&en.running, 1, 0) {
		return models.ErrNotRunning
	}

	en.mu.Lock()
	close(en.stop)
	session := en.session
	en.session = nil
	en.mu.Unlock()

	if session == nil {
		return models.ErrNoActiveSession
	}

	price, err := en.exchangeService.GetPrice(en.config.Pair)
	if err != nil {
		helpers.Logger.Warnln(fmt.Sprintf("stop: price unavailable: %v", err))
		price = 0
	}
	en.liquidateSession(session.ID, price)

	if !en.config.PaperTrading {
		if err := en.exchangeService.ConvertWallet(en.config.Pair, en.config.BaseAsset, en.config.QuoteAsset); err != nil {
			helpers.Logger.Warnln(fmt.Sprintf("stop: wallet conversion failed: %v", err))
		}
	}

	strategyIDs := make([]string, 0, len(en.strategies))
	for _, strategy := range en.strategies {
		strategyIDs = append(strategyIDs, strategy.Info().ID)
	}
	en.learnerService.UpdateAll(strategyIDs)

	en.cacheMu.Lock()
	en.cachedSeries = nil
	en.cacheMu.Unlock()

	finalBalance, err := en.allocationService.TotalBalance(session.ID, price)
	if err != nil {
		return err
	}
	if err := en.dbService.EndSession(session.ID, finalBalance); err != nil {
		return err
	}

	en.saveEngineState()
	helpers.Logger.Infoln(fmt.Sprintf("🖖🏻 Session %d ended with balance %.2f", session.ID, finalBalance))
	return nil
}

func (en *EngineService) loop() {
	ticker := time.NewTicker(en.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-en.stop:
			return
		case <-ticker.C:
			en.maybeResetDay()
			if _, err := en.Tick(); err != nil {
				helpers.Logger.Errorln(fmt.Sprintf("tick failed: %v", err))
			}
		}
	}
}

// Tick runs one full evaluation pass. Re-entrant calls are not queued: when
// a tick is already in flight the new one reports itself skipped, so a slow
// exchange can never pile up overlapping passes.
func (en *EngineService) Tick() (models.TickResult, error) {
	if !atomic.CompareAndSwapInt32(&en.ticking, 0, 1) {
		return models.TickResult{Timestamp: time.Now().UTC(), Skipped: true}, nil
	}
	defer atomic.StoreInt32(&en.ticking, 0)

	en.mu.Lock()
	session := en.session
	en.mu.Unlock()
	if session == nil {
		return models.TickResult{}, models.ErrNoActiveSession
	}

	series, err := en.getSeries()
	if err != nil {
		en.recordError(err)
		return models.TickResult{}, err
	}

	price, err := en.exchangeService.GetPrice(en.config.Pair)
	if err != nil || price <= 0 {
		if len(series.Candles) == 0 {
			err := fmt.Errorf("no market price available")
			en.recordError(err)
			return models.TickResult{}, err
		}
		price = series.Candles[len(series.Candles)-1].ClosePrice.Float()
	}

	regime := en.regimeService.Detect(series)

	result := models.TickResult{
		Timestamp: time.Now().UTC(),
		Price:     price,
		Regime:    regime.Regime,
	}

	var weightedSignals []WeightedSignal
	for _, strategy := range en.strategies {
		outcome := en.tickStrategy(session.ID, strategy, series, price, regime, &weightedSignals)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	aggregated := en.aggregatorService.Combine(weightedSignals)
	result.Aggregated = &aggregated

	en.mu.Lock()
	en.lastTick = &result
	en.lastError = ""
	en.mu.Unlock()
	en.saveEngineState()
	return result, nil
}

// recordError keeps the most recent engine-level failure for the status
// surface; the loop itself keeps running.
func (en *EngineService) recordError(err error) {
	en.mu.Lock()
	en.lastError = err.Error()
	en.mu.Unlock()
	en.saveEngineState()
}

// tickStrategy runs one strategy's full decision path: exit checks on its
// open entries first, then the entry gates (adaptive threshold, lesson
// factor, strategy risk and the optional portfolio gate).
func (en *EngineService) tickStrategy(sessionID uint, strategy interfaces.Strategy,
	series *techan.TimeSeries, price float64, regime models.RegimeAnalysis,
	weightedSignals *[]WeightedSignal) models.StrategyTickOutcome {

	info := strategy.Info()
	outcome := models.StrategyTickOutcome{StrategyID: info.ID, Action: "hold"}

	params, weight, enabled := en.strategySettings(strategy)
	if !enabled {
		outcome.Action = "disabled"
		return outcome
	}

	signal, err := strategy.Analyze(series, params)
	if err != nil {
		outcome.Action = "error"
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Signal = &signal
	*weightedSignals = append(*weightedSignals, WeightedSignal{Signal: signal, Weight: weight})

	riskConfig := config.RiskForCategory(info.Category)

	openTrades := en.openTradesFor(sessionID, info.ID)
	if len(openTrades) > 0 {
		closedCount := 0
		for i := range openTrades {
			closed, trigger, err := en.executorService.CheckAndClosePosition(&openTrades[i], price, riskConfig)
			if err != nil {
				outcome.Action = "error"
				outcome.Error = err.Error()
				return outcome
			}
			if closed != nil {
				closedCount++
				outcome.Action = "closed"
				outcome.Detail = string(trigger)
			}
		}

		// Opposite signal closes what the stop and target left open.
		if closedCount < len(openTrades) && signal.Action == models.ActionSell && signal.Confidence >= 0.3 {
			exitIndicators := "{}"
			if payload, err := json.Marshal(signal.Indicators); err == nil {
				exitIndicators = string(payload)
			}
			for i := range openTrades {
				if _, err := en.executorService.ExecuteSell(&openTrades[i], price, models.ExitSignal, exitIndicators); err != nil {
					if err == models.ErrNotFound || err == models.ErrInProgress {
						continue
					}
					outcome.Action = "error"
					outcome.Error = err.Error()
					return outcome
				}
				closedCount++
			}
			outcome.Action = "closed"
			outcome.Detail = string(models.ExitSignal)
		}
		if closedCount > 0 {
			return outcome
		}
	}

	if signal.Action != models.ActionBuy {
		return outcome
	}
	// One open position per strategy: a buy while a position is held is a
	// no-op, never a pyramid.
	if len(openTrades) > 0 {
		outcome.Detail = "position already open"
		return outcome
	}

	lessonCheck, err := en.learnerService.CheckLessons(info.ID, signal.Indicators)
	if err != nil {
		outcome.Action = "error"
		outcome.Error = err.Error()
		return outcome
	}
	effectiveConfidence := signal.Confidence * lessonCheck.Factor
	threshold := en.learnerService.AdaptiveThreshold(info.ID)
	if effectiveConfidence < threshold {
		outcome.Detail = fmt.Sprintf("confidence %.2f below threshold %.2f (%s)",
			effectiveConfidence, threshold, lessonCheck.Reason)
		return outcome
	}

	allocation, err := en.allocationService.GetAllocation(sessionID, info.ID)
	if err != nil {
		outcome.Action = "error"
		outcome.Error = err.Error()
		return outcome
	}

	strategyRisk, err := en.riskService.CheckStrategyRisk(info.ID, allocation.CurrentCapital, riskConfig)
	if err != nil {
		outcome.Action = "error"
		outcome.Error = err.Error()
		return outcome
	}
	if !strategyRisk.Allowed {
		outcome.Action = "blocked"
		outcome.Detail = strategyRisk.Reason
		return outcome
	}

	reduction := strategyRisk.Reduction
	if en.config.PortfolioRiskGate {
		totalBalance, err := en.allocationService.TotalBalance(sessionID, price)
		if err != nil {
			outcome.Action = "error"
			outcome.Error = err.Error()
			return outcome
		}
		portfolioRisk, err := en.riskService.CheckRisk(models.ActionBuy, price, totalBalance, riskConfig)
		if err != nil {
			outcome.Action = "error"
			outcome.Error = err.Error()
			return outcome
		}
		if !portfolioRisk.Allowed {
			outcome.Action = "blocked"
			outcome.Detail = portfolioRisk.Reason
			return outcome
		}
		if portfolioRisk.Reduction < reduction {
			reduction = portfolioRisk.Reduction
		}
	}

	positionValue := allocation.InitialCapital * en.config.EntrySizeWeights[0] * reduction
	signalData := en.buildSignalData(signal, regime, price)

	trade, err := en.executorService.ExecuteBuy(sessionID, info.ID, en.config.Pair, price, positionValue, signalData)
	if err != nil {
		if err == models.ErrInProgress || err == models.ErrZeroQuantity {
			outcome.Detail = err.Error()
			return outcome
		}
		outcome.Action = "error"
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Action = "opened"
	outcome.Detail = fmt.Sprintf("qty %.6f", trade.Quantity)
	return outcome
}

func (en *EngineService) strategySettings(strategy interfaces.Strategy) (map[string]float64, float64, bool) {
	info := strategy.Info()
	storedConfig, err := en.dbService.GetStrategyConfig(info.ID)
	if err != nil {
		return info.DefaultParameters, 1.0, true
	}
	var params map[string]float64
	if json.Unmarshal([]byte(storedConfig.Parameters), &params) != nil || params == nil {
		params = info.DefaultParameters
	}
	return params, storedConfig.Weight, storedConfig.Enabled
}

func (en *EngineService) openTradesFor(sessionID uint, strategyID string) []databaseModels.Trade {
	allOpen, err := en.dbService.GetOpenTrades(sessionID)
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("open trade lookup failed: %v", err))
		return nil
	}
	var trades []databaseModels.Trade
	for _, trade := range allOpen {
		if trade.StrategyID == strategyID {
			trades = append(trades, trade)
		}
	}
	return trades
}

func (en *EngineService) buildSignalData(signal models.Signal, regime models.RegimeAnalysis, price float64) string {
	payload, err := json.Marshal(map[string]interface{}{
		"indicators": signal.Indicators,
		"regime":     regime.Regime,
		"confidence": signal.Confidence,
		"reason":     signal.Reason,
		"price":      price,
	})
	if err != nil {
		return "{}"
	}
	return string(payload)
}

// getSeries serves candles from a short-lived cache so one tick does not hit
// the exchange once per strategy.
func (en *EngineService) getSeries() (*techan.TimeSeries, error) {
	en.cacheMu.Lock()
	defer en.cacheMu.Unlock()

	if en.cachedSeries != nil && time.Since(en.cacheFetchedAt) < en.config.CandleCacheTTL {
		return en.cachedSeries, nil
	}

	series, err := en.exchangeService.GetSeries(en.config.Pair, en.config.Interval, en.config.CandleLimit)
	if err != nil {
		if en.cachedSeries != nil {
			helpers.Logger.Warnln(fmt.Sprintf("candle fetch failed, serving stale cache: %v", err))
			return en.cachedSeries, nil
		}
		return nil, err
	}
	en.cachedSeries = &series
	en.cacheFetchedAt = time.Now()
	return en.cachedSeries, nil
}

// MarketSeries exposes the cached candle series for callers outside the tick
// loop, such as the rebalance endpoint.
func (en *EngineService) MarketSeries() (*techan.TimeSeries, error) {
	return en.getSeries()
}

// maybeResetDay rolls the daily books at UTC midnight: persist yesterday's
// performance, clear the daily loss counters and refresh every adaptive
// threshold.
func (en *EngineService) maybeResetDay() {
	today := time.Now().UTC().Format("2006-01-02")

	en.mu.Lock()
	if en.dayStart == today {
		en.mu.Unlock()
		return
	}
	previousDay := en.dayStart
	startValue := en.dayStartValue
	session := en.session
	en.dayStart = today
	en.mu.Unlock()

	if session == nil {
		return
	}

	price, err := en.exchangeService.GetPrice(en.config.Pair)
	if err != nil {
		price = 0
	}
	endValue, err := en.allocationService.TotalBalance(session.ID, price)
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("daily reset: balance read failed: %v", err))
		endValue = startValue
	}

	dayStart, _ := time.Parse("2006-01-02", previousDay)
	closedTrades, err := en.dbService.GetTradesClosedSince(dayStart)
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("daily reset: trade lookup failed: %v", err))
	}
	tradeCount := 0
	winCount := 0
	pnl := 0.0
	for _, trade := range closedTrades {
		if trade.Pnl == nil {
			continue
		}
		tradeCount++
		pnl += *trade.Pnl
		if *trade.Pnl > 0 {
			winCount++
		}
	}

	if err := en.dbService.UpsertDailyPerformance(databaseModels.DailyPerformance{
		Date:            previousDay,
		StartingBalance: startValue,
		EndingBalance:   endValue,
		TradeCount:      tradeCount,
		WinCount:        winCount,
		Pnl:             pnl,
		CreatedAt:       time.Now().UTC(),
	}); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("daily reset: performance save failed: %v", err))
	}

	if err := en.riskService.ResetDaily(); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("daily reset: risk reset failed: %v", err))
	}

	strategyIDs := make([]string, 0, len(en.strategies))
	for _, strategy := range en.strategies {
		strategyIDs = append(strategyIDs, strategy.Info().ID)
	}
	en.learnerService.UpdateAll(strategyIDs)

	en.mu.Lock()
	en.dayStartValue = endValue
	en.mu.Unlock()

	helpers.Logger.Infoln(fmt.Sprintf("🌅 Daily rollover: %s closed at %.2f (%d trades, %d wins, pnl %.2f)",
		previousDay, endValue, tradeCount, winCount, pnl))
}

// closeStaleSession ends a session a previous process left active. Its open
// positions are liquidated at the current price so the new session starts
// from clean cash.
func (en *EngineService) closeStaleSession() error {
	stale, err := en.dbService.GetActiveSession()
	if err == models.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	helpers.Logger.Warnln(fmt.Sprintf("found stale session %d, liquidating", stale.ID))
	price, err := en.exchangeService.GetPrice(en.config.Pair)
	if err != nil {
		price = 0
	}
	en.liquidateSession(stale.ID, price)

	finalBalance, err := en.allocationService.TotalBalance(stale.ID, price)
	if err != nil {
		return err
	}
	return en.dbService.EndSession(stale.ID, finalBalance)
}

func (en *EngineService) liquidateSession(sessionID uint, price float64) {
	openTrades, err := en.dbService.GetOpenTrades(sessionID)
	if err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("liquidation: open trade lookup failed: %v", err))
		return
	}
	for i := range openTrades {
		if _, err := en.executorService.Liquidate(&openTrades[i], price); err != nil {
			helpers.Logger.Errorln(fmt.Sprintf("liquidation failed for trade %d: %v", openTrades[i].ID, err))
		}
	}
}

func (en *EngineService) Status() EngineStatus {
	en.mu.Lock()
	session := en.session
	lastTick := en.lastTick
	lastError := en.lastError
	en.mu.Unlock()

	status := EngineStatus{
		Running:   atomic.LoadInt32(&en.running) == 1,
		Session:   session,
		LastTick:  lastTick,
		LastError: lastError,
	}
	if session != nil {
		price := 0.0
		if lastTick != nil {
			price = lastTick.Price
		}
		if balance, err := en.allocationService.TotalBalance(session.ID, price); err == nil {
			status.TotalBalance = balance
		}
		if unrealized, err := en.allocationService.UnrealizedPnl(session.ID, price); err == nil {
			status.UnrealizedPnl = unrealized
		}
	}
	return status
}

func (en *EngineService) saveEngineState() {
	en.mu.Lock()
	var sessionID uint
	if en.session != nil {
		sessionID = en.session.ID
	}
	var lastTickAt time.Time
	if en.lastTick != nil {
		lastTickAt = en.lastTick.Timestamp
	}
	lastError := en.lastError
	en.mu.Unlock()

	payload, err := json.Marshal(map[string]interface{}{
		"running":    atomic.LoadInt32(&en.running) == 1,
		"sessionId":  sessionID,
		"lastTickAt": lastTickAt,
		"lastError":  lastError,
	})
	if err != nil {
		return
	}
	if err := en.dbService.SetState(databaseModels.StateEngine, string(payload)); err != nil {
		helpers.Logger.Warnln(fmt.Sprintf("engine state save failed: %v", err))
	}
}
