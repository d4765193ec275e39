package models

import "time"

type SideType string

const (
	SideTypeBuy  SideType = "BUY"
	SideTypeSell SideType = "SELL"
)

// OrderFill is the normalized result of a market order, paper or live.
type OrderFill struct {
	Symbol   string    `json:"symbol"`
	Side     SideType  `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Fee      float64   `json:"fee"`
	Time     time.Time `json:"time"`
}
