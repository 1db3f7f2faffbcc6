package service

import (
	"time"

	"MarketPulse/internal/domain/models"
)

// IndicatorEngine derives technical indicators from a newest-first bar window.
type IndicatorEngine interface {
	Compute(assetID int64, bars []models.Bar, at time.Time) (models.IndicatorSnapshot, error)
	DetectPatterns(bars []models.Bar) []models.Pattern
}

// SignalEngine turns bars, indicators and patterns into a directional call.
// Implementations must be pure: equal inputs give equal signals.
type SignalEngine interface {
	Evaluate(bars []models.Bar, snap models.IndicatorSnapshot, patterns []models.Pattern) (models.Signal, error)
}

// ValidationEngine decides whether a prediction can be scored yet and how.
type ValidationEngine interface {
	Resolve(p models.Prediction, latest *models.Bar, now time.Time) (models.Outcome, bool)
}
