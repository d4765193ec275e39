package models

// ParameterRange bounds one tunable parameter for the grid search.
type ParameterRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

type StrategyInfo struct {
	ID                string                    `json:"id"`
	Name              string                    `json:"name"`
	Category          string                    `json:"category"`
	DefaultParameters map[string]float64        `json:"defaultParameters"`
	ParameterRanges   map[string]ParameterRange `json:"parameterRanges"`
}
