package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/quote"
)

// IngestTask fetches a quote per active asset and appends it as a bar.
type IngestTask struct {
	store   drepo.TimeSeriesStore
	quotes  drepo.QuoteSource
	events  drepo.EventSink
	metrics drepo.Metrics
	timeout time.Duration
	wick    float64
	now     func() time.Time
}

func NewIngestTask(store drepo.TimeSeriesStore, quotes drepo.QuoteSource, events drepo.EventSink, metrics drepo.Metrics, timeout time.Duration) *IngestTask {
	return &IngestTask{
		store:   store,
		quotes:  quotes,
		events:  events,
		metrics: metrics,
		timeout: timeout,
		wick:    quote.DefaultWick,
		now:     time.Now,
	}
}

func (t *IngestTask) Name() string { return "ingest" }

// RunCycle ingests every active asset concurrently.
func (t *IngestTask) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Task: t.Name(), Started: t.now()}
	rep.Items = fanOut(ctx, t.store.Assets(), t.timeout, t.ingest)
	rep.Duration = time.Since(rep.Started)
	return rep
}

func (t *IngestTask) ingest(ctx context.Context, a models.Asset) ItemResult {
	q, err := t.quotes.Fetch(ctx, a.Symbol, a.Class)
	if err != nil {
		return itemFailed(a.Symbol, fmt.Errorf("fetch: %w", err))
	}

	prev, err := t.store.LatestBar(a.ID)
	if err != nil {
		return itemFailed(a.Symbol, err)
	}
	var prevClose *float64
	if prev != nil {
		prevClose = &prev.Close
	}

	b := quote.ToBar(a.ID, q, prevClose, t.now(), t.wick)
	id, err := t.store.AppendBar(b)
	if err != nil {
		return itemFailed(a.Symbol, fmt.Errorf("append bar: %w", err))
	}
	b.ID = id

	t.metrics.RecordBar(a.Symbol, q.Source)
	t.metrics.RecordLastPrice(a.Symbol, b.Close)
	t.events.BarAppended(b)
	return itemDone(a.Symbol)
}
