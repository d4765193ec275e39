package paper

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/helpers"
	"github.com/avidalgo/selftuningbot/models"
)

// PaperService trades against real market data with a simulated wallet.
// Candles and prices come from the live exchange; orders fill instantly at
// the quoted price and only move the in-memory balances.
type PaperService struct {
	binanceClient *binance.Client
	pair          string

	mu         sync.Mutex
	balances   map[string]float64
	quoteAsset string
	feeRate    float64
}

func NewPaperService(initialBalance float64, quoteAsset string, feeRate float64) *PaperService {
	apiKey := os.Getenv("binanceAPIKey")
	apiSecret := os.Getenv("binanceAPISecret")
	return &PaperService{
		binanceClient: binance.NewClient(apiKey, apiSecret),
		balances:      map[string]float64{quoteAsset: initialBalance},
		quoteAsset:    quoteAsset,
		feeRate:       feeRate,
	}
}

func (s *PaperService) SetPair(pair string) {
	s.pair = pair
}

func (s *PaperService) ConfigureClient() {
}

func (s *PaperService) GetTotalBalance(asset string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[asset], nil
}

func (s *PaperService) GetPrice(pair string) (float64, error) {
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

func (s *PaperService) GetSeries(pair string, interval string, limit int) (techan.TimeSeries, error) {
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

// MarketOrder fills at the live quote and shifts the simulated balances.
func (s *PaperService) MarketOrder(pair string, side models.SideType, quantity float64) (models.OrderFill, error) {
	if quantity <= 0 {
		return models.OrderFill{}, models.ErrZeroQuantity
	}
	price, err := s.GetPrice(pair)
	if err != nil {
		return models.OrderFill{}, err
	}

	notional := quantity * price
	fee := notional * s.feeRate

	s.mu.Lock()
	if side == models.SideTypeBuy {
		s.balances[s.quoteAsset] -= notional + fee
	} else {
		s.balances[s.quoteAsset] += notional - fee
	}
	s.mu.Unlock()

	return models.OrderFill{
		Symbol:   pair,
		Side:     side,
		Price:    price,
		Quantity: quantity,
		Fee:      fee,
		Time:     time.Now(),
	}, nil
}

func (s *PaperService) ConvertWallet(pair string, baseAsset string, quoteAsset string) error {
	return nil
}
