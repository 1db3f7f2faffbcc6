package indicators

import (
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/service"
)

// MinSnapshotBars is the history required before any snapshot is produced.
const MinSnapshotBars = 20

// Engine implements service.IndicatorEngine with the standard periods.
type Engine struct {
	minBars int
}

var _ service.IndicatorEngine = (*Engine)(nil)

func NewEngine(minBars int) *Engine {
	if minBars <= 0 {
		minBars = MinSnapshotBars
	}
	return &Engine{minBars: minBars}
}

// Compute builds a snapshot from bars (newest first).
func (e *Engine) Compute(assetID int64, bars []models.Bar, at time.Time) (models.IndicatorSnapshot, error) {
	if len(bars) < e.minBars {
		return models.IndicatorSnapshot{}, fmt.Errorf("%d of %d bars: %w", len(bars), e.minBars, models.ErrInsufficientHistory)
	}
	prices := Closes(bars)

	snap := models.IndicatorSnapshot{
		AssetID:   assetID,
		Timestamp: at,
		RSI14:     models.Float(RSI(prices, RSIPeriod)),
	}
	if v, ok := SMA(prices, SMAPeriod); ok {
		snap.SMA20 = models.Float(v)
	}
	if v, ok := EMA(prices, EMAPeriod); ok {
		snap.EMA12 = models.Float(v)
	}
	if v, ok := MACD(prices); ok {
		snap.MACD = models.Float(v)
	}
	if b, ok := BollingerBands(prices, BollingerPeriod, BollingerWidth); ok {
		snap.BollingerUpper = models.Float(b.Upper)
		snap.BollingerLower = models.Float(b.Lower)
	}
	return snap, nil
}

func (e *Engine) DetectPatterns(bars []models.Bar) []models.Pattern {
	return DetectPatterns(bars)
}
