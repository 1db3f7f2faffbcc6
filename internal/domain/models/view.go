package models

// LatestView is the newest known state of one asset.
type LatestView struct {
	Asset           Asset              `json:"asset"`
	MarketData      *Bar               `json:"marketData"`
	Indicators      *IndicatorSnapshot `json:"technicalIndicators"`
	Prediction      *Prediction        `json:"prediction"`
	RollingAccuracy *float64           `json:"rollingAccuracy,omitempty"`
}

// EnrichedPrediction carries the asset a prediction refers to.
type EnrichedPrediction struct {
	Prediction
	Asset *Asset `json:"asset"`
}

// MarketUpdate is the payload pushed to websocket subscribers.
type MarketUpdate struct {
	Type string       `json:"type"`
	Data []LatestView `json:"data"`
}

const MarketUpdateType = "market-update"
