package repository

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// TimeSeriesStore owns assets, bars, indicator snapshots and predictions.
// Reads return copies; callers never hold references into the store.
type TimeSeriesStore interface {
	AddAsset(a models.Asset) (models.Asset, error)
	Assets() []models.Asset
	Asset(id int64) (models.Asset, error)
	AssetBySymbol(symbol string) (models.Asset, error)

	AppendBar(b models.Bar) (int64, error)
	LatestBar(assetID int64) (*models.Bar, error)
	BarHistory(assetID int64, limit int) ([]models.Bar, error)

	AppendIndicatorSnapshot(s models.IndicatorSnapshot) (int64, error)
	LatestIndicatorSnapshot(assetID int64) (*models.IndicatorSnapshot, error)

	AppendPrediction(p models.Prediction) (int64, error)
	LatestPrediction(assetID int64) (*models.Prediction, error)
	RecentPredictions(limit int) []models.Prediction
	SetPredictionOutcome(id int64, outcome models.Outcome) (models.Prediction, error)
}

// QuoteSource fetches a current quote for a symbol.
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string, class models.AssetClass) (models.Quote, error)
}

// Publisher streams pipeline events to a message bus.
type Publisher interface {
	PublishBars(ctx context.Context, bars []models.Bar) error
	PublishPredictions(ctx context.Context, preds []models.Prediction) error
	PublishOutcomes(ctx context.Context, preds []models.Prediction) error
	Close() error
}

// Archive keeps an analytical copy of pipeline events.
type Archive interface {
	Init(ctx context.Context) error
	StoreBars(ctx context.Context, bars []models.Bar) error
	StorePredictions(ctx context.Context, preds []models.Prediction) error
	StoreOutcomes(ctx context.Context, preds []models.Prediction) error
	Health(ctx context.Context) error
	Close() error
}

// EventSink receives pipeline events for off-path delivery. Implementations
// must not block the caller.
type EventSink interface {
	BarAppended(b models.Bar)
	PredictionCreated(p models.Prediction)
	PredictionResolved(p models.Prediction)
}

// ViewCache holds recently assembled per-asset views for the read API.
type ViewCache interface {
	Get(ctx context.Context, assetID int64) (models.LatestView, bool)
	Put(ctx context.Context, v models.LatestView)
}

type Metrics interface {
	RecordBar(symbol, source string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordPrediction(symbol string, direction models.Direction)
	RecordOutcome(symbol string, outcome models.Outcome)
	RecordAccuracy(accuracy float64)
	RecordCycle(task string, seconds float64, done, skipped, failed int)
}
