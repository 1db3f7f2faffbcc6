package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
)

const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendBoth       = "both"
)

// ArchiveRouter routes archive batches to the configured backend.
type ArchiveRouter struct {
	pub     drepo.Publisher
	store   drepo.Archive
	metrics drepo.Metrics
	backend string
}

// NewArchiveRouter creates a router. pub and store may be nil when the
// backend does not use them.
func NewArchiveRouter(pub drepo.Publisher, store drepo.Archive, metrics drepo.Metrics, backend string) (*ArchiveRouter, error) {
	switch backend {
	case BackendNone:
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("archive backend %q needs a publisher", backend)
		}
	case BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("archive backend %q needs a store", backend)
		}
	case BackendBoth:
		if pub == nil || store == nil {
			return nil, fmt.Errorf("archive backend %q needs a publisher and a store", backend)
		}
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", backend)
	}
	return &ArchiveRouter{pub: pub, store: store, metrics: metrics, backend: backend}, nil
}

func (r *ArchiveRouter) Backend() string { return r.backend }

// ProcessBatch writes the batch to every sink of the backend. With "both",
// a failure in one sink does not stop the other.
func (r *ArchiveRouter) ProcessBatch(ctx context.Context, b models.ArchiveBatch) error {
	if b.Len() == 0 || r.backend == BackendNone {
		return nil
	}

	start := time.Now()
	var errs []error
	if r.backend == BackendKafka || r.backend == BackendBoth {
		errs = append(errs, r.publish(ctx, b))
	}
	if r.backend == BackendClickHouse || r.backend == BackendBoth {
		errs = append(errs, r.archive(ctx, b))
	}

	if err := errors.Join(errs...); err != nil {
		r.metrics.RecordError("archive_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	r.metrics.RecordLatency("archive_batch", time.Since(start).Seconds())
	return nil
}

func (r *ArchiveRouter) publish(ctx context.Context, b models.ArchiveBatch) error {
	if len(b.Bars) > 0 {
		if err := r.pub.PublishBars(ctx, b.Bars); err != nil {
			return fmt.Errorf("kafka bars: %w", err)
		}
	}
	if len(b.Predictions) > 0 {
		if err := r.pub.PublishPredictions(ctx, b.Predictions); err != nil {
			return fmt.Errorf("kafka predictions: %w", err)
		}
	}
	if len(b.Outcomes) > 0 {
		if err := r.pub.PublishOutcomes(ctx, b.Outcomes); err != nil {
			return fmt.Errorf("kafka outcomes: %w", err)
		}
	}
	return nil
}

func (r *ArchiveRouter) archive(ctx context.Context, b models.ArchiveBatch) error {
	if len(b.Bars) > 0 {
		if err := r.store.StoreBars(ctx, b.Bars); err != nil {
			return fmt.Errorf("clickhouse bars: %w", err)
		}
	}
	if len(b.Predictions) > 0 {
		if err := r.store.StorePredictions(ctx, b.Predictions); err != nil {
			return fmt.Errorf("clickhouse predictions: %w", err)
		}
	}
	if len(b.Outcomes) > 0 {
		if err := r.store.StoreOutcomes(ctx, b.Outcomes); err != nil {
			return fmt.Errorf("clickhouse outcomes: %w", err)
		}
	}
	return nil
}

// Close closes underlying resources if available.
func (r *ArchiveRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
