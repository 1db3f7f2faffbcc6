package quote

import (
	"context"
	"errors"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// Fallback serves a mock quote whenever the primary source fails, so the
// ingest task always has a price to record.
type Fallback struct {
	primary repository.QuoteSource
	mock    repository.QuoteSource
	logger  *applogger.Logger
	metrics repository.Metrics
}

var _ repository.QuoteSource = (*Fallback)(nil)

func NewFallback(primary, mock repository.QuoteSource, logger *applogger.Logger, metrics repository.Metrics) *Fallback {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Fallback{primary: primary, mock: mock, logger: logger, metrics: metrics}
}

func (f *Fallback) Fetch(ctx context.Context, symbol string, class models.AssetClass) (models.Quote, error) {
	if f.primary != nil {
		q, err := f.primary.Fetch(ctx, symbol, class)
		if err == nil {
			return q, nil
		}
		kind := "provider_error"
		if errors.Is(err, models.ErrProviderUnavailable) {
			kind = "provider_unavailable"
			// a missing key is configuration, not an incident
			f.logger.Debug("quote: using mock", applogger.String("symbol", symbol), applogger.Error(err))
		} else {
			f.logger.Warn("quote: provider failed, using mock", applogger.String("symbol", symbol), applogger.Error(err))
		}
		if f.metrics != nil {
			f.metrics.RecordError(kind)
		}
	}
	return f.mock.Fetch(ctx, symbol, class)
}
