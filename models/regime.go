package models

type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeVolatile     Regime = "volatile"
)

type RegimeAnalysis struct {
	Regime                Regime   `json:"regime"`
	Confidence            float64  `json:"confidence"`
	ADX                   float64  `json:"adx"`
	ATR                   float64  `json:"atr"`
	ATRRatio              float64  `json:"atrRatio"`
	TrendDirection        int      `json:"trendDirection"`
	RecommendedCategories []string `json:"recommendedCategories"`
}
