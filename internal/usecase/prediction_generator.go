package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/domain/service"

	"github.com/google/uuid"
)

// PredictionWindow is how many recent bars the signal engine sees.
const PredictionWindow = 10

// PredictionTask emits one prediction per asset from its latest bars and
// whatever indicator snapshot is current, however old.
type PredictionTask struct {
	store      drepo.TimeSeriesStore
	indicators service.IndicatorEngine
	signals    service.SignalEngine
	events     drepo.EventSink
	metrics    drepo.Metrics
	now        func() time.Time
}

func NewPredictionTask(
	store drepo.TimeSeriesStore,
	indicators service.IndicatorEngine,
	signals service.SignalEngine,
	events drepo.EventSink,
	metrics drepo.Metrics,
) *PredictionTask {
	return &PredictionTask{
		store:      store,
		indicators: indicators,
		signals:    signals,
		events:     events,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (t *PredictionTask) Name() string { return "predictions" }

func (t *PredictionTask) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Task: t.Name(), Started: t.now()}
	for _, a := range t.store.Assets() {
		if ctx.Err() != nil {
			rep.Items = append(rep.Items, itemSkipped(a.Symbol, ctx.Err()))
			continue
		}
		_, err := t.Predict(a)
		rep.Items = append(rep.Items, classify(a.Symbol, err))
	}
	rep.Duration = time.Since(rep.Started)
	return rep
}

// Predict generates and stores a prediction for a.
func (t *PredictionTask) Predict(a models.Asset) (models.Prediction, error) {
	snap, err := t.store.LatestIndicatorSnapshot(a.ID)
	if err != nil {
		return models.Prediction{}, err
	}
	if snap == nil {
		return models.Prediction{}, fmt.Errorf("%s: no indicator snapshot: %w", a.Symbol, models.ErrInsufficientHistory)
	}
	bars, err := t.store.BarHistory(a.ID, PredictionWindow)
	if err != nil {
		return models.Prediction{}, err
	}

	patterns := t.indicators.DetectPatterns(bars)
	sig, err := t.signals.Evaluate(bars, *snap, patterns)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("%s: %w", a.Symbol, err)
	}

	p := models.Prediction{
		TraceID:    uuid.New(),
		AssetID:    a.ID,
		Timestamp:  t.now(),
		Direction:  sig.Direction,
		Confidence: sig.Confidence,
		EntryPoint: sig.EntryPoint,
		Outcome:    models.OutcomePending,
		Technical: models.TechnicalData{
			Patterns: patterns,
			RSI:      snap.RSI14,
			MACD:     snap.MACD,
			SMA20:    snap.SMA20,
			EMA12:    snap.EMA12,
			Votes:    sig.Votes,
		},
	}
	if p.Technical.Patterns == nil {
		p.Technical.Patterns = []models.Pattern{}
	}
	id, err := t.store.AppendPrediction(p)
	if err != nil {
		return models.Prediction{}, fmt.Errorf("append prediction: %w", err)
	}
	p.ID = id

	t.metrics.RecordPrediction(a.Symbol, p.Direction)
	t.events.PredictionCreated(p)
	return p, nil
}
