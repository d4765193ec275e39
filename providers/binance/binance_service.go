package binance

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/models"
	"golang.org/x/time/rate"
)

// BinanceService is the live exchange gateway. All REST calls share one rate
// limiter so a burst of strategies cannot trip the exchange request weight.
type BinanceService struct {
	binanceClient *binance.Client
	apiKey        string
	apiSecret     string
	pair          string
	limiter       *rate.Limiter
}

func NewBinanceService() *BinanceService {
	return &BinanceService{
		apiKey:    os.Getenv("binanceAPIKey"),
		apiSecret: os.Getenv("binanceAPISecret"),
		limiter:   rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
}

func init() {
	confFile := os.Getenv("CONF_FILE")
	if confFile == "" {
		confFile = "/conf.env"
	}
	cwd, _ := os.Getwd()
	_ = godotenv.Load(cwd + confFile)
}

func (s *BinanceService) SetPair(pair string) {
	s.pair = pair
}

func (s *BinanceService) ConfigureClient() {
	s.binanceClient = binance.NewClient(s.apiKey, s.apiSecret)
}

func (s *BinanceService) wait() {
	_ = s.limiter.Wait(context.Background())
}

func (s *BinanceService) assetBalance(asset string, includeLocked bool) (float64, error) {
	s.wait()
	account, err := s.binanceClient.NewGetAccountService().Do(context.Background())
	if err != nil {
		return 0, err
	}
	for _, balance := range account.Balances {
		if balance.Asset != asset {
			continue
		}
		total, err := strconv.ParseFloat(balance.Free, 64)
		if err != nil {
			return 0, err
		}
		if includeLocked {
			locked, err := strconv.ParseFloat(balance.Locked, 64)
			if err != nil {
				return 0, err
			}
			total += locked
		}
		return total, nil
	}
	return 0, fmt.Errorf("asset %s not present in account balances", asset)
}

func (s *BinanceService) GetTotalBalance(asset string) (float64, error) {
	return s.assetBalance(asset, true)
}

func (s *BinanceService) GetAvailableBalance(asset string) (float64, error) {
	return s.assetBalance(asset, false)
}

func (s *BinanceService) GetPrice(pair string) (float64, error) {
	s.wait()
	prices, err := s.binanceClient.NewListPricesService().Symbol(pair).Do(context.Background())
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p.Symbol == pair {
			return strconv.ParseFloat(p.Price, 64)
		}
	}
	return 0, fmt.Errorf("no price for %s", pair)
}

// GetSeries pulls up to limit klines, paging in 1000-candle chunks the way
// the exchange requires.
func (s *BinanceService) GetSeries(pair string, interval string, limit int) (techan.TimeSeries, error) {
	if limit == 0 {
		limit = 1000
	}
	series := techan.TimeSeries{}

	intervalSeconds := helpers.StringIntervalToSeconds(interval)
	period := time.Duration(intervalSeconds) * time.Second

	remaining := limit
	chunk := remaining % 1000
	if chunk == 0 {
		chunk = 1000
	}
	var klines []*binance.Kline
	for remaining > 0 {
		from := time.Now().Unix() - int64(intervalSeconds)*int64(remaining)
		s.wait()
		page, err := s.binanceClient.NewKlinesService().Symbol(pair).
			Interval(interval).Limit(chunk).StartTime(from * 1000).Do(context.Background())
		if err != nil {
			return series, err
		}
		klines = append(klines, page...)
		remaining -= chunk
		chunk = 1000
	}

	for _, kline := range klines {
		candle := techan.NewCandle(techan.NewTimePeriod(time.Unix(kline.OpenTime/1000, 0), period))
		candle.OpenPrice = big.NewFromString(kline.Open)
		candle.ClosePrice = big.NewFromString(kline.Close)
		candle.MaxPrice = big.NewFromString(kline.High)
		candle.MinPrice = big.NewFromString(kline.Low)
		candle.Volume = big.NewFromString(kline.Volume)
		candle.TradeCount = uint(kline.TradeNum)
		series.AddCandle(candle)
	}

	return series, nil
}

// MarketOrder places an immediate order and normalizes the fill. Quantity is
// snapped to the pair's lot step before sending.
func (s *BinanceService) MarketOrder(pair string, side models.SideType, quantity float64) (models.OrderFill, error) {
	stepSize, precision, err := s.lotStep(pair)
	if err != nil {
		return models.OrderFill{}, err
	}
	if stepSize > 0 {
		quantity = float64(int64(quantity/stepSize)) * stepSize
	}
	if quantity <= 0 {
		return models.OrderFill{}, models.ErrZeroQuantity
	}

	sideType := binance.SideTypeBuy
	if side == models.SideTypeSell {
		sideType = binance.SideTypeSell
	}

	s.wait()
	order, err := s.binanceClient.NewCreateOrderService().Symbol(pair).
		Side(sideType).Type(binance.OrderTypeMarket).
		Quantity(fmt.Sprintf(fmt.Sprintf("%%.%df", precision), quantity)).
		Do(context.Background())
	if err != nil {
		return models.OrderFill{}, err
	}

	executedQuantity, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quoteQuantity, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)
	fee := 0.0
	for _, fill := range order.Fills {
		commission, _ := strconv.ParseFloat(fill.Commission, 64)
		fee += commission
	}

	fillPrice := 0.0
	if executedQuantity > 0 {
		fillPrice = quoteQuantity / executedQuantity
	}
	return models.OrderFill{
		Symbol:   pair,
		Side:     side,
		Price:    fillPrice,
		Quantity: executedQuantity,
		Fee:      fee,
		Time:     time.Unix(order.TransactTime/1000, 0),
	}, nil
}

// ConvertWallet liquidates any leftover base asset into quote so a new
// session starts from cash. Dust below the lot step is left alone.
func (s *BinanceService) ConvertWallet(pair string, baseAsset string, quoteAsset string) error {
	baseBalance, err := s.GetAvailableBalance(baseAsset)
	if err != nil {
		return err
	}
	stepSize, _, err := s.lotStep(pair)
	if err != nil {
		return err
	}
	if baseBalance < stepSize || baseBalance <= 0 {
		return nil
	}

	fill, err := s.MarketOrder(pair, models.SideTypeSell, baseBalance)
	if err != nil {
		return err
	}
	helpers.Logger.Infoln(fmt.Sprintf("♻️ Converted %.6f %s into %s @ %.6f",
		fill.Quantity, baseAsset, quoteAsset, fill.Price))
	return nil
}

func (s *BinanceService) lotStep(pair string) (float64, int, error) {
	s.wait()
	info, err := s.binanceClient.NewExchangeInfoService().Symbol(pair).Do(context.Background())
	if err != nil {
		return 0, 8, err
	}
	for _, symbol := range info.Symbols {
		if strings.Contains(symbol.Symbol, pair) {
			stepSize, _ := strconv.ParseFloat(symbol.LotSizeFilter().StepSize, 64)
			return stepSize, symbol.QuotePrecision, nil
		}
	}
	return 0, 8, fmt.Errorf("no exchange info for %s", pair)
}
