package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/domain/service"
	"MarketPulse/internal/services/validation"
)

const (
	// ValidationScan is how many recent predictions each cycle inspects.
	ValidationScan = 100
	// AccuracySample is how many recent predictions feed overall accuracy.
	AccuracySample = 1000
)

// ValidationTask scores matured pending predictions against the latest bar.
type ValidationTask struct {
	store   drepo.TimeSeriesStore
	engine  service.ValidationEngine
	window  *validation.RollingWindow
	events  drepo.EventSink
	metrics drepo.Metrics
	now     func() time.Time
}

func NewValidationTask(
	store drepo.TimeSeriesStore,
	engine service.ValidationEngine,
	window *validation.RollingWindow,
	events drepo.EventSink,
	metrics drepo.Metrics,
) *ValidationTask {
	return &ValidationTask{
		store:   store,
		engine:  engine,
		window:  window,
		events:  events,
		metrics: metrics,
		now:     time.Now,
	}
}

func (t *ValidationTask) Name() string { return "validation" }

// RunCycle reports one item per prediction it resolved or failed on.
// Predictions still waiting to mature are not reported.
func (t *ValidationTask) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Task: t.Name(), Started: t.now()}
	now := t.now()

	for _, p := range t.store.RecentPredictions(ValidationScan) {
		if p.Outcome.Resolved() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		key := "prediction/" + strconv.FormatInt(p.ID, 10)

		latest, err := t.store.LatestBar(p.AssetID)
		if err != nil {
			rep.Items = append(rep.Items, itemFailed(key, err))
			continue
		}
		outcome, ok := t.engine.Resolve(p, latest, now)
		if !ok {
			continue
		}
		rep.Items = append(rep.Items, classify(key, t.resolve(p, outcome)))
	}

	acc := validation.Accuracy(t.store.RecentPredictions(AccuracySample))
	if acc.TotalCompleted > 0 {
		t.metrics.RecordAccuracy(acc.Accuracy)
	}
	rep.Duration = time.Since(rep.Started)
	return rep
}

func (t *ValidationTask) resolve(p models.Prediction, outcome models.Outcome) error {
	resolved, err := t.store.SetPredictionOutcome(p.ID, outcome)
	if err != nil {
		if errors.Is(err, models.ErrOutcomeAlreadySet) {
			return err
		}
		return fmt.Errorf("set outcome: %w", err)
	}

	t.window.Record(p.AssetID, outcome == models.OutcomeSuccess)
	symbol := strconv.FormatInt(p.AssetID, 10)
	if a, err := t.store.Asset(p.AssetID); err == nil {
		symbol = a.Symbol
	}
	t.metrics.RecordOutcome(symbol, outcome)
	t.events.PredictionResolved(resolved)
	return nil
}
