package models

import "time"

// Pattern names a detected candlestick formation.
type Pattern string

const (
	PatternHammer           Pattern = "Bullish Hammer"
	PatternShootingStar     Pattern = "Shooting Star"
	PatternBullishEngulfing Pattern = "Bullish Engulfing"
	PatternBearishEngulfing Pattern = "Bearish Engulfing"
)

// IndicatorSnapshot holds the indicators computed for an asset in one refresh
// cycle. A nil field means the indicator was undefined for the window.
type IndicatorSnapshot struct {
	ID             int64     `json:"id"`
	AssetID        int64     `json:"assetId"`
	Timestamp      time.Time `json:"timestamp"`
	SMA20          *float64  `json:"sma20"`
	EMA12          *float64  `json:"ema12"`
	RSI14          *float64  `json:"rsi"`
	MACD           *float64  `json:"macd"`
	BollingerUpper *float64  `json:"bollingerUpper"`
	BollingerLower *float64  `json:"bollingerLower"`
}

// Float returns a pointer to v, for filling optional indicator fields.
func Float(v float64) *float64 { return &v }

// ValueOr dereferences p or returns def when p is nil.
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy of s.
func (s IndicatorSnapshot) Clone() IndicatorSnapshot {
	out := s
	out.SMA20 = cloneFloat(s.SMA20)
	out.EMA12 = cloneFloat(s.EMA12)
	out.RSI14 = cloneFloat(s.RSI14)
	out.MACD = cloneFloat(s.MACD)
	out.BollingerUpper = cloneFloat(s.BollingerUpper)
	out.BollingerLower = cloneFloat(s.BollingerLower)
	return out
}
