package models

import (
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Resolved reports whether the outcome is terminal.
func (o Outcome) Resolved() bool { return o == OutcomeSuccess || o == OutcomeFailure }

// VoteTally records how the signal rules voted.
type VoteTally struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
	Total   int `json:"total"`
}

// TechnicalData is the indicator context a prediction was made from.
type TechnicalData struct {
	Patterns []Pattern `json:"patterns"`
	RSI      *float64  `json:"rsi"`
	MACD     *float64  `json:"macd"`
	SMA20    *float64  `json:"sma20"`
	EMA12    *float64  `json:"ema12"`
	Votes    VoteTally `json:"votes"`
}

// Prediction is a directional call on an asset. Outcome is the only field
// that changes after creation and moves PENDING -> SUCCESS|FAILURE once.
type Prediction struct {
	ID         int64         `json:"id"`
	TraceID    uuid.UUID     `json:"traceId"`
	AssetID    int64         `json:"assetId"`
	Timestamp  time.Time     `json:"timestamp"`
	Direction  Direction     `json:"prediction"`
	Confidence float64       `json:"confidence"`
	EntryPoint float64       `json:"entryPoint"`
	Outcome    Outcome       `json:"actualResult"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
	Technical  TechnicalData `json:"technicalData"`
}

// AccuracyMetrics summarises resolved predictions.
type AccuracyMetrics struct {
	Accuracy       float64 `json:"overallAccuracy"`
	SuccessCount   int     `json:"successfulPredictions"`
	FailureCount   int     `json:"failedPredictions"`
	TotalCompleted int     `json:"totalPredictions"`
}

// Clone returns a deep copy of p.
func (p Prediction) Clone() Prediction {
	out := p
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		out.ResolvedAt = &t
	}
	out.Technical.Patterns = append([]Pattern(nil), p.Technical.Patterns...)
	out.Technical.RSI = cloneFloat(p.Technical.RSI)
	out.Technical.MACD = cloneFloat(p.Technical.MACD)
	out.Technical.SMA20 = cloneFloat(p.Technical.SMA20)
	out.Technical.EMA12 = cloneFloat(p.Technical.EMA12)
	return out
}

// Valid reports whether the prediction's fields are within their domains.
func (p Prediction) Valid() bool {
	if p.Direction != DirectionBuy && p.Direction != DirectionSell {
		return false
	}
	if p.Confidence < 0 || p.Confidence > 100 || p.EntryPoint < 0 {
		return false
	}
	switch p.Outcome {
	case OutcomePending, OutcomeSuccess, OutcomeFailure:
		return true
	}
	return false
}

// Signal is the output of the signal engine before it is stored as a prediction.
type Signal struct {
	Direction  Direction
	Confidence float64
	EntryPoint float64
	Votes      VoteTally
}
