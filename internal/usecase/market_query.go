package usecase

import (
	"context"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/services/validation"
)

// MarketQuery is the read side used by the HTTP API and the websocket hub.
type MarketQuery struct {
	store  drepo.TimeSeriesStore
	window *validation.RollingWindow
	cache  drepo.ViewCache
}

// NewMarketQuery builds the read facade. cache may be nil.
func NewMarketQuery(store drepo.TimeSeriesStore, window *validation.RollingWindow, cache drepo.ViewCache) *MarketQuery {
	return &MarketQuery{store: store, window: window, cache: cache}
}

func (q *MarketQuery) GetAllAssets() []models.Asset { return q.store.Assets() }

func (q *MarketQuery) GetAsset(id int64) (models.Asset, error) { return q.store.Asset(id) }

func (q *MarketQuery) GetLatestBar(assetID int64) (*models.Bar, error) {
	return q.store.LatestBar(assetID)
}

// GetBarHistory returns up to limit bars, newest first.
func (q *MarketQuery) GetBarHistory(assetID int64, limit int) ([]models.Bar, error) {
	return q.store.BarHistory(assetID, limit)
}

func (q *MarketQuery) GetLatestIndicators(assetID int64) (*models.IndicatorSnapshot, error) {
	return q.store.LatestIndicatorSnapshot(assetID)
}

func (q *MarketQuery) GetLatestPrediction(assetID int64) (*models.Prediction, error) {
	return q.store.LatestPrediction(assetID)
}

func (q *MarketQuery) GetRecentPredictions(limit int) []models.Prediction {
	return q.store.RecentPredictions(limit)
}

// GetRecentPredictionsWithAssets attaches the asset to each prediction.
func (q *MarketQuery) GetRecentPredictionsWithAssets(limit int) []models.EnrichedPrediction {
	preds := q.store.RecentPredictions(limit)
	assets := make(map[int64]*models.Asset)
	out := make([]models.EnrichedPrediction, 0, len(preds))
	for _, p := range preds {
		a, seen := assets[p.AssetID]
		if !seen {
			if got, err := q.store.Asset(p.AssetID); err == nil {
				a = &got
			}
			assets[p.AssetID] = a
		}
		out = append(out, models.EnrichedPrediction{Prediction: p, Asset: a})
	}
	return out
}

// GetAccuracyMetrics summarises the most recent predictions.
func (q *MarketQuery) GetAccuracyMetrics() models.AccuracyMetrics {
	return validation.Accuracy(q.store.RecentPredictions(AccuracySample))
}

// GetLatestView assembles the newest bar, snapshot and prediction of an asset.
func (q *MarketQuery) GetLatestView(ctx context.Context, assetID int64) (models.LatestView, error) {
	if q.cache != nil {
		if v, ok := q.cache.Get(ctx, assetID); ok {
			return v, nil
		}
	}

	a, err := q.store.Asset(assetID)
	if err != nil {
		return models.LatestView{}, err
	}
	v, err := q.view(a)
	if err != nil {
		return models.LatestView{}, err
	}
	if q.cache != nil {
		q.cache.Put(ctx, v)
	}
	return v, nil
}

func (q *MarketQuery) view(a models.Asset) (models.LatestView, error) {
	v := models.LatestView{Asset: a}
	var err error
	if v.MarketData, err = q.store.LatestBar(a.ID); err != nil {
		return v, err
	}
	if v.Indicators, err = q.store.LatestIndicatorSnapshot(a.ID); err != nil {
		return v, err
	}
	if v.Prediction, err = q.store.LatestPrediction(a.ID); err != nil {
		return v, err
	}
	if q.window != nil {
		if acc, ok := q.window.Accuracy(a.ID); ok {
			v.RollingAccuracy = &acc
		}
	}
	return v, nil
}

// GetMarketUpdate returns the latest view of every active asset. It bypasses
// the view cache.
func (q *MarketQuery) GetMarketUpdate(ctx context.Context) models.MarketUpdate {
	assets := q.store.Assets()
	upd := models.MarketUpdate{Type: models.MarketUpdateType, Data: make([]models.LatestView, 0, len(assets))}
	for _, a := range assets {
		if ctx.Err() != nil {
			break
		}
		v, err := q.view(a)
		if err != nil {
			continue
		}
		upd.Data = append(upd.Data, v)
	}
	return upd
}
