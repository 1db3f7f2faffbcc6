package cache

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgcache "MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

const (
	DefaultViewTTL = 5 * time.Second
	viewKeyPrefix  = "view"
)

// ViewCache keeps assembled LatestView values for a short TTL so repeated
// reads of the same asset do not hit the store.
type ViewCache struct {
	backend pkgcache.Service
	ttl     time.Duration
	logger  *applogger.Logger
}

var _ domrepo.ViewCache = (*ViewCache)(nil)

func NewViewCache(backend pkgcache.Service, ttl time.Duration, logger *applogger.Logger) *ViewCache {
	if ttl <= 0 {
		ttl = DefaultViewTTL
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	return &ViewCache{backend: backend, ttl: ttl, logger: logger}
}

func viewKey(assetID int64) string {
	return pkgcache.GenerateKey(viewKeyPrefix, assetID)
}

// Get returns the cached view. Backend errors count as a miss.
func (c *ViewCache) Get(ctx context.Context, assetID int64) (models.LatestView, bool) {
	var v models.LatestView
	err := c.backend.Get(ctx, viewKey(assetID), &v)
	if err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.logger.Debug("view cache read failed",
				applogger.Int64("asset_id", assetID),
				applogger.Error(err),
			)
		}
		return models.LatestView{}, false
	}
	return v, true
}

func (c *ViewCache) Put(ctx context.Context, v models.LatestView) {
	if err := c.backend.Set(ctx, viewKey(v.Asset.ID), v, c.ttl); err != nil {
		c.logger.Debug("view cache write failed",
			applogger.Int64("asset_id", v.Asset.ID),
			applogger.Error(err),
		)
	}
}

// Invalidate drops cached views for the given assets.
func (c *ViewCache) Invalidate(ctx context.Context, assetIDs ...int64) error {
	keys := make([]string, len(assetIDs))
	for i, id := range assetIDs {
		keys[i] = viewKey(id)
	}
	return c.backend.Delete(ctx, keys...)
}
