package interfaces

import (
	"github.com/sdcoffey/techan"
	"github.com/avidalgo/selftuningbot/models"
)

type ExchangeService interface {
	SetPair(pair string)
	ConfigureClient()
	GetSeries(pair string, interval string, limit int) (techan.TimeSeries, error)
	GetPrice(pair string) (float64, error)
	GetTotalBalance(asset string) (float64, error)
	MarketOrder(pair string, side models.SideType, quantity float64) (models.OrderFill, error)
	// ConvertWallet sells the whole base asset balance into the quote
	// asset at market. Used on session boundaries.
	ConvertWallet(pair string, baseAsset string, quoteAsset string) error
}
