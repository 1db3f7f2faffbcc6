// Package validation scores matured predictions against later prices.
package validation

import (
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/service"
	"MarketPulse/pkg/util"
)

// DefaultMaturity is how long a prediction must age before it is scored.
const DefaultMaturity = 60 * time.Second

// Engine implements service.ValidationEngine.
type Engine struct {
	maturity time.Duration
}

var _ service.ValidationEngine = (*Engine)(nil)

func NewEngine(maturity time.Duration) *Engine {
	if maturity <= 0 {
		maturity = DefaultMaturity
	}
	return &Engine{maturity: maturity}
}

// Resolve returns the outcome for p and whether it is decided. A prediction
// stays pending until it has matured and a bar at or after its timestamp
// exists. Already resolved predictions report their stored outcome.
func (e *Engine) Resolve(p models.Prediction, latest *models.Bar, now time.Time) (models.Outcome, bool) {
	if p.Outcome.Resolved() {
		return p.Outcome, false
	}
	if now.Sub(p.Timestamp) < e.maturity || latest == nil || latest.Timestamp.Before(p.Timestamp) {
		return models.OutcomePending, false
	}

	win := (p.Direction == models.DirectionBuy && latest.Close > p.EntryPoint) ||
		(p.Direction == models.DirectionSell && latest.Close < p.EntryPoint)
	if win {
		return models.OutcomeSuccess, true
	}
	return models.OutcomeFailure, true
}

// Accuracy summarises resolved predictions; pending ones are ignored.
func Accuracy(preds []models.Prediction) models.AccuracyMetrics {
	var m models.AccuracyMetrics
	for _, p := range preds {
		switch p.Outcome {
		case models.OutcomeSuccess:
			m.SuccessCount++
		case models.OutcomeFailure:
			m.FailureCount++
		}
	}
	m.TotalCompleted = m.SuccessCount + m.FailureCount
	if m.TotalCompleted > 0 {
		m.Accuracy = util.Round(100*float64(m.SuccessCount)/float64(m.TotalCompleted), 1)
	}
	return m
}
