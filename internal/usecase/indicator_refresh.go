package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/domain/service"
)

// IndicatorHistory is how many recent bars feed one indicator snapshot.
const IndicatorHistory = 50

// IndicatorRefreshTask recomputes the indicator snapshot of every asset.
type IndicatorRefreshTask struct {
	store  drepo.TimeSeriesStore
	engine service.IndicatorEngine
	now    func() time.Time
}

func NewIndicatorRefreshTask(store drepo.TimeSeriesStore, engine service.IndicatorEngine) *IndicatorRefreshTask {
	return &IndicatorRefreshTask{store: store, engine: engine, now: time.Now}
}

func (t *IndicatorRefreshTask) Name() string { return "indicators" }

func (t *IndicatorRefreshTask) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Task: t.Name(), Started: t.now()}
	for _, a := range t.store.Assets() {
		if ctx.Err() != nil {
			rep.Items = append(rep.Items, itemSkipped(a.Symbol, ctx.Err()))
			continue
		}
		rep.Items = append(rep.Items, classify(a.Symbol, t.refresh(a)))
	}
	rep.Duration = time.Since(rep.Started)
	return rep
}

func (t *IndicatorRefreshTask) refresh(a models.Asset) error {
	bars, err := t.store.BarHistory(a.ID, IndicatorHistory)
	if err != nil {
		return err
	}
	snap, err := t.engine.Compute(a.ID, bars, t.now())
	if err != nil {
		return err
	}
	if _, err := t.store.AppendIndicatorSnapshot(snap); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}
