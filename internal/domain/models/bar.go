package models

import (
	"math"
	"time"
)

// Bar is one OHLCV observation for an asset.
type Bar struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"assetId"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Valid reports whether the bar satisfies low <= min(open,close) and
// high >= max(open,close) with finite, non-negative prices.
func (b Bar) Valid() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	if b.Volume < 0 {
		return false
	}
	return b.Low <= math.Min(b.Open, b.Close) && b.High >= math.Max(b.Open, b.Close)
}

// Body returns the absolute distance between open and close.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// UpperShadow returns the wick above the body.
func (b Bar) UpperShadow() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerShadow returns the wick below the body.
func (b Bar) LowerShadow() float64 { return math.Min(b.Open, b.Close) - b.Low }

// Bullish reports close > open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports close < open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Quote is a point-in-time price returned by a quote source.
type Quote struct {
	Symbol    string
	Price     float64
	ChangeAbs float64
	ChangePct float64
	Volume    int64
	AsAt      time.Time
	Source    string
}
