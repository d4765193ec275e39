package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/avidalgo/selftuningbot/database"
	databaseModels "github.com/avidalgo/selftuningbot/database/models"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/models"
	"github.com/avidalgo/selftuningbot/services"
)

// Server exposes the engine over HTTP: session control, manual ticks, the
// strategy configuration surface and the audit trails.
type Server struct {
	engineService     *services.EngineService
	rebalancerService *services.RebalancerService
	dbService         *database.DBService
	strategies        []interfaces.Strategy
	addr              string
}

func NewServer(engineService *services.EngineService, rebalancerService *services.RebalancerService,
	dbService *database.DBService, strategies []interfaces.Strategy, addr string) *Server {
	return &Server{
		engineService:     engineService,
		rebalancerService: rebalancerService,
		dbService:         dbService,
		strategies:        strategies,
		addr:              addr,
	}
}

func (s *Server) Run() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/engine/start", s.startEngine)
		apiGroup.POST("/engine/stop", s.stopEngine)
		apiGroup.POST("/engine/tick", s.manualTick)
		apiGroup.GET("/engine/status", s.engineStatus)

		apiGroup.GET("/strategies/configs", s.getStrategyConfigs)
		apiGroup.PATCH("/strategies/configs/:strategyId", s.patchStrategyConfig)
		apiGroup.GET("/strategies/allocations", s.getAllocations)

		apiGroup.GET("/trades", s.getTrades)
		apiGroup.GET("/backtests", s.getBacktests)

		apiGroup.POST("/rebalance", s.runRebalance)
		apiGroup.GET("/rebalance/log", s.getRebalanceLog)

		apiGroup.GET("/analytics/daily", s.getDailyPerformance)
	}

	helpers.Logger.Infoln("🌐 API listening on " + s.addr)
	return router.Run(s.addr)
}

func (s *Server) startEngine(c *gin.Context) {
	if err := s.engineService.Start(); err != nil {
		status := http.StatusInternalServerError
		if err == models.ErrAlreadyRunning {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) stopEngine(c *gin.Context) {
	if err := s.engineService.Stop(); err != nil {
		status := http.StatusInternalServerError
		if err == models.ErrNotRunning {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) manualTick(c *gin.Context) {
	result, err := s.engineService.Tick()
	if err != nil {
		status := http.StatusInternalServerError
		if err == models.ErrNoActiveSession {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) engineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engineService.Status())
}

func (s *Server) getStrategyConfigs(c *gin.Context) {
	configs, err := s.dbService.GetStrategyConfigs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type configView struct {
		Info   models.StrategyInfo `json:"info"`
		Stored interface{}         `json:"stored,omitempty"`
	}
	views := make([]configView, 0, len(s.strategies))
	for _, strategy := range s.strategies {
		view := configView{Info: strategy.Info()}
		for i := range configs {
			if configs[i].StrategyID == view.Info.ID {
				view.Stored = configs[i]
				break
			}
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

type patchConfigRequest struct {
	Parameters map[string]float64 `json:"parameters"`
	Weight     *float64           `json:"weight"`
	Enabled    *bool              `json:"enabled"`
}

func (s *Server) patchStrategyConfig(c *gin.Context) {
	strategyID := c.Param("strategyId")

	var known bool
	for _, strategy := range s.strategies {
		if strategy.Info().ID == strategyID {
			known = true
			break
		}
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy " + strategyID})
		return
	}

	var request patchConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config, err := s.dbService.GetStrategyConfig(strategyID)
	if err == models.ErrNotFound {
		config = s.defaultConfig(strategyID)
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if request.Parameters != nil {
		config.Parameters = marshalParameters(request.Parameters)
	}
	if request.Weight != nil {
		config.Weight = helpers.Clamp(*request.Weight, 0.1, 3.0)
	}
	if request.Enabled != nil {
		config.Enabled = *request.Enabled
	}

	if err := s.dbService.SaveStrategyConfig(*config); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, config)
}

func (s *Server) defaultConfig(strategyID string) *databaseModels.StrategyConfig {
	config := &databaseModels.StrategyConfig{
		StrategyID: strategyID,
		Parameters: "{}",
		Weight:     1.0,
		Enabled:    true,
	}
	for _, strategy := range s.strategies {
		if strategy.Info().ID == strategyID {
			config.Parameters = marshalParameters(strategy.Info().DefaultParameters)
			break
		}
	}
	return config
}

func marshalParameters(params map[string]float64) string {
	payload, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(payload)
}

func (s *Server) getAllocations(c *gin.Context) {
	session, err := s.dbService.GetActiveSession()
	if err == models.ErrNotFound {
		c.JSON(http.StatusOK, gin.H{"allocations": []interface{}{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	allocations, err := s.dbService.GetAllocations(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "allocations": allocations})
}

func (s *Server) getTrades(c *gin.Context) {
	trades, err := s.dbService.GetTrades(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) getBacktests(c *gin.Context) {
	results, err := s.dbService.GetBacktestResults(c.Query("strategyId"), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) runRebalance(c *gin.Context) {
	series, err := s.engineService.MarketSeries()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	summary, err := s.rebalancerService.Rebalance(s.strategies, series)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) getRebalanceLog(c *gin.Context) {
	entries, err := s.dbService.GetRebalanceLogs(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getDailyPerformance(c *gin.Context) {
	rows, err := s.dbService.GetDailyPerformance(90)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}
