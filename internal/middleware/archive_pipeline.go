package middleware

import (
	"context"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Proc is the downstream the pipeline flushes batches into.
type Proc interface {
	ProcessBatch(ctx context.Context, batch models.ArchiveBatch) error
}

type eventKind uint8

const (
	kindBar eventKind = iota
	kindPrediction
	kindOutcome
)

type event struct {
	kind eventKind
	bar  models.Bar
	pred models.Prediction
}

// ArchivePipeline sits between the scheduler tasks and the archive sinks.
// Events are queued without blocking, grouped into batches and flushed by
// size or age. A failing downstream is retried with backoff; when the queue
// is full new events are dropped.
type ArchivePipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	logger  *applogger.Logger

	bufSize    int
	batchSize  int
	batchAge   time.Duration
	maxRetries int
	backoff    time.Duration

	ch      chan event
	stopCh  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	started bool
}

var _ domrepo.EventSink = (*ArchivePipeline)(nil)

type PipelineOption func(*ArchivePipeline)

// WithBufferSize sets how many events may wait for a flush.
func WithBufferSize(n int) PipelineOption {
	return func(p *ArchivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the flush thresholds.
func WithBatch(size int, age time.Duration) PipelineOption {
	return func(p *ArchivePipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if age > 0 {
			p.batchAge = age
		}
	}
}

// WithRetry sets the attempts per batch and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) PipelineOption {
	return func(p *ArchivePipeline) {
		if attempts > 0 {
			p.maxRetries = attempts
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *ArchivePipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewArchivePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *ArchivePipeline {
	p := &ArchivePipeline{
		proc:       proc,
		metrics:    metrics,
		logger:     applogger.Nop(),
		bufSize:    4096,
		batchSize:  500,
		batchAge:   2 * time.Second,
		maxRetries: 3,
		backoff:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ch = make(chan event, p.bufSize)
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	return p
}

func (p *ArchivePipeline) BarAppended(b models.Bar) { p.enqueue(event{kind: kindBar, bar: b}) }

func (p *ArchivePipeline) PredictionCreated(pr models.Prediction) {
	p.enqueue(event{kind: kindPrediction, pred: pr.Clone()})
}

func (p *ArchivePipeline) PredictionResolved(pr models.Prediction) {
	p.enqueue(event{kind: kindOutcome, pred: pr.Clone()})
}

func (p *ArchivePipeline) enqueue(ev event) {
	select {
	case p.ch <- ev:
	default:
		p.metrics.RecordError("archive_buffer_full")
	}
}

// Pending returns the number of queued events not yet taken into a batch.
func (p *ArchivePipeline) Pending() int { return len(p.ch) }

// Start launches the flush loop. Calling it twice is a no-op.
func (p *ArchivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop drains whatever is queued, flushes it once and waits for the loop.
func (p *ArchivePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.done
}

func (p *ArchivePipeline) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.batchAge)
	defer ticker.Stop()

	var batch models.ArchiveBatch
	for {
		select {
		case ev := <-p.ch:
			add(&batch, ev)
			if batch.Len() >= p.batchSize {
				p.flush(ctx, &batch)
			}
		case <-ticker.C:
			p.flush(ctx, &batch)
		case <-ctx.Done():
			p.drain(context.Background(), &batch)
			return
		case <-p.stopCh:
			p.drain(ctx, &batch)
			return
		}
	}
}

func (p *ArchivePipeline) drain(ctx context.Context, batch *models.ArchiveBatch) {
	for {
		select {
		case ev := <-p.ch:
			add(batch, ev)
		default:
			if batch.Len() > 0 {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				p.flush(ctx, batch)
				cancel()
			}
			return
		}
	}
}

func add(b *models.ArchiveBatch, ev event) {
	switch ev.kind {
	case kindBar:
		b.Bars = append(b.Bars, ev.bar)
	case kindPrediction:
		b.Predictions = append(b.Predictions, ev.pred)
	case kindOutcome:
		b.Outcomes = append(b.Outcomes, ev.pred)
	}
}

func (p *ArchivePipeline) flush(ctx context.Context, batch *models.ArchiveBatch) {
	if batch.Len() == 0 {
		return
	}
	start := time.Now()
	backoff := p.backoff

	for attempt := 1; ; attempt++ {
		err := p.proc.ProcessBatch(ctx, *batch)
		if err == nil {
			p.metrics.RecordLatency("archive_flush", time.Since(start).Seconds())
			break
		}
		p.metrics.RecordError("archive_flush")
		if attempt >= p.maxRetries || ctx.Err() != nil {
			p.logger.Warn("archive: dropping batch",
				applogger.Int("events", batch.Len()),
				applogger.Int("attempts", attempt),
				applogger.Error(err),
			)
			p.metrics.RecordError("archive_batch_drop")
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	batch.Reset()
}

// NopSink discards events. Used when no archive backend is configured.
type NopSink struct{}

func (NopSink) BarAppended(models.Bar) {}
func (NopSink) PredictionCreated(models.Prediction) {}
func (NopSink) PredictionResolved(models.Prediction) {}
