package api

import (
	"errors"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/usecase"
	xhttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/http/middleware"
	xlogger "MarketPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the read-only market API under /api.
type MarketHandler struct {
	logger *xlogger.Logger
	query  *usecase.MarketQuery

	limiter  middleware.Allower
	capacity float64
	refill   float64
}

type HandlerOption func(*MarketHandler)

// WithRateLimit throttles each client to capacity requests per route,
// refilled at refillPerSec.
func WithRateLimit(limiter middleware.Allower, capacity, refillPerSec float64) HandlerOption {
	return func(h *MarketHandler) {
		h.limiter = limiter
		h.capacity = capacity
		h.refill = refillPerSec
	}
}

func NewMarketHandler(logger *xlogger.Logger, query *usecase.MarketQuery, opts ...HandlerOption) *MarketHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &MarketHandler{logger: logger, query: query}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	if h.limiter != nil && h.capacity > 0 {
		g.Use(middleware.RateLimit(h.limiter, h.capacity, h.refill))
	}
	g.GET("/healthz", h.Health)
	g.GET("/assets", h.Assets)
	g.GET("/assets/:id", h.Asset)
	g.GET("/assets/:id/market-data", h.MarketData)
	g.GET("/assets/:id/latest-data", h.LatestData)
	g.GET("/predictions/recent", h.RecentPredictions)
	g.GET("/metrics/accuracy", h.Accuracy)
	g.GET("/metrics", h.Accuracy)
}

func (h *MarketHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"assets": len(h.query.GetAllAssets()),
	})
}

func (h *MarketHandler) Assets(c echo.Context) error {
	assets := h.query.GetAllAssets()
	return xhttp.ListResponse(c, assets, int64(len(assets)))
}

func (h *MarketHandler) Asset(c echo.Context) error {
	req := &models.AssetPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	a, err := h.query.GetAsset(req.ID)
	if err != nil {
		return h.fail(c, "asset", err)
	}
	return xhttp.SuccessResponse(c, a)
}

func (h *MarketHandler) MarketData(c echo.Context) error {
	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bars, err := h.query.GetBarHistory(req.ID, req.Limit)
	if err != nil {
		return h.fail(c, "market-data", err)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func (h *MarketHandler) LatestData(c echo.Context) error {
	req := &models.AssetPathRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := h.query.GetLatestView(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "latest-data", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, v)
}

func (h *MarketHandler) RecentPredictions(c echo.Context) error {
	req := &models.RecentPredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	preds := h.query.GetRecentPredictionsWithAssets(req.Limit)
	return xhttp.ListResponse(c, preds, int64(len(preds)))
}

func (h *MarketHandler) Accuracy(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.query.GetAccuracyMetrics())
}

func (h *MarketHandler) fail(c echo.Context, endpoint string, err error) error {
	if errors.Is(err, models.ErrUnknownAsset) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("asset not found").WithError(err))
	}
	h.logger.Error("market api error", xlogger.String("endpoint", endpoint), xlogger.Error(err))
	return xhttp.AppErrorResponse(c, xhttp.InternalError("internal error").WithError(err))
}
