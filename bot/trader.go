package bot

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/avidalgo/selftuningbot/api"
	"github.com/avidalgo/selftuningbot/config"
	"github.com/avidalgo/selftuningbot/database"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/interfaces"
	"github.com/avidalgo/selftuningbot/providers/binance"
	"github.com/avidalgo/selftuningbot/providers/paper"
	"github.com/avidalgo/selftuningbot/services"
	"github.com/avidalgo/selftuningbot/strategies"
)

type Trader struct {
}

func init() {
	cwd, _ := os.Getwd()
	err := godotenv.Load(cwd + "/conf.env")
	if err != nil {
		log.Warnln("no conf.env file, using environment and defaults")
	}
}

// deps is the fully wired service graph every command runs on.
type deps struct {
	config            *config.Config
	dbService         *database.DBService
	exchangeService   interfaces.ExchangeService
	strategies        []interfaces.Strategy
	engineService     *services.EngineService
	rebalancerService *services.RebalancerService
	backtestService   *services.BacktestService
	gridSearchService *services.GridSearchService
}

func buildDeps() (*deps, error) {
	cfg := config.Load()

	var dbService *database.DBService
	var err error
	if cfg.DBDriver == "mysql" {
		dbService, err = database.NewDBService(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)
	} else {
		dbService, err = database.NewSQLiteDBService(cfg.DBPath)
	}
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var exchangeService interfaces.ExchangeService
	if cfg.PaperTrading {
		exchangeService = paper.NewPaperService(cfg.PaperInitialBalance, cfg.QuoteAsset, cfg.FeeRate)
	} else {
		exchangeService = binance.NewBinanceService()
	}

	strategyList := strategies.All()

	allocationService := services.NewAllocationService(dbService, cfg.FeeRate, cfg.PaperTrading)
	executorService := services.NewExecutorService(exchangeService, allocationService, cfg.PaperTrading)
	riskService := services.NewRiskService(dbService)
	learnerService := services.NewLearnerService(dbService)
	regimeService := services.NewRegimeService()
	aggregatorService := services.NewAggregatorService()

	engineService := services.NewEngineService(cfg, dbService, exchangeService, allocationService,
		executorService, riskService, learnerService, regimeService, aggregatorService, strategyList)

	backtestService := services.NewBacktestService()
	gridSearchService := services.NewGridSearchService(backtestService)
	walkForwardService := services.NewWalkForwardService(backtestService)
	rebalancerService := services.NewRebalancerService(dbService, backtestService,
		gridSearchService, walkForwardService, regimeService)

	return &deps{
		config:            cfg,
		dbService:         dbService,
		exchangeService:   exchangeService,
		strategies:        strategyList,
		engineService:     engineService,
		rebalancerService: rebalancerService,
		backtestService:   backtestService,
		gridSearchService: gridSearchService,
	}, nil
}

// Run starts the trading engine and blocks on the API server.
func (t *Trader) Run(c *cli.Context) error {
	helpers.Logger.Infoln("🖖🏻 Self-tuning trader started")

	d, err := buildDeps()
	if err != nil {
		return err
	}

	if err := d.engineService.Start(); err != nil {
		return err
	}

	server := api.NewServer(d.engineService, d.rebalancerService, d.dbService, d.strategies, d.config.APIAddr)
	return server.Run()
}
