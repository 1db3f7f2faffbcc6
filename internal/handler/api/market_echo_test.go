package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/repository"
	"MarketPulse/internal/services/validation"
	"MarketPulse/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type list struct {
	Rows  json.RawMessage `json:"rows"`
	Total int64           `json:"total"`
}

func newAPI(t *testing.T, opts ...HandlerOption) (*echo.Echo, *repository.MemoryStore, *validation.RollingWindow) {
	t.Helper()
	store := repository.NewMemoryStore(repository.WithStrict(false))
	for _, a := range models.DefaultAssets() {
		_, err := store.AddAsset(a)
		require.NoError(t, err)
	}
	window := validation.NewRollingWindow(validation.DefaultWindow)
	h := NewMarketHandler(nil, usecase.NewMarketQuery(store, window, nil), opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, store, window
}

func get(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestAssetsListed(t *testing.T) {
	e, _, _ := newAPI(t)

	rec, env := get(t, e, "/api/assets")
	require.Equal(t, http.StatusOK, rec.Code)

	var l list
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, int64(6), l.Total)
	var assets []models.Asset
	require.NoError(t, json.Unmarshal(l.Rows, &assets))
	assert.Equal(t, "AAPL", assets[0].Symbol)
}

func TestUnknownAssetIs404(t *testing.T) {
	e, _, _ := newAPI(t)

	for _, path := range []string{"/api/assets/99", "/api/assets/99/market-data", "/api/assets/99/latest-data"} {
		rec, _ := get(t, e, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND", path)
	}
}

func TestMarketDataLimitBounds(t *testing.T) {
	e, store, _ := newAPI(t)
	for i := 0; i < 60; i++ {
		c := 100 + float64(i)
		_, err := store.AppendBar(models.Bar{AssetID: 1, Timestamp: t0.Add(time.Duration(i) * time.Second), Open: c, High: c, Low: c, Close: c, Volume: 1})
		require.NoError(t, err)
	}

	rec, env := get(t, e, "/api/assets/1/market-data")
	require.Equal(t, http.StatusOK, rec.Code)
	var l list
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, int64(50), l.Total)
	var bars []models.Bar
	require.NoError(t, json.Unmarshal(l.Rows, &bars))
	assert.Equal(t, 159.0, bars[0].Close)

	_, env = get(t, e, "/api/assets/1/market-data?limit=5")
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, int64(5), l.Total)

	rec, _ = get(t, e, "/api/assets/1/market-data?limit=501")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = get(t, e, "/api/assets/0/market-data")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestDataView(t *testing.T) {
	e, store, window := newAPI(t)

	rec, env := get(t, e, "/api/assets/2/latest-data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `null`, string(extract(t, env.Data, "marketData")))
	assert.JSONEq(t, `null`, string(extract(t, env.Data, "prediction")))

	_, err := store.AppendBar(models.Bar{AssetID: 2, Timestamp: t0, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 3})
	require.NoError(t, err)
	_, err = store.AppendPrediction(models.Prediction{AssetID: 2, Timestamp: t0, Direction: models.DirectionSell, Confidence: 60, EntryPoint: 10.5})
	require.NoError(t, err)
	window.Record(2, true)
	window.Record(2, false)

	_, env = get(t, e, "/api/assets/2/latest-data")
	var v models.LatestView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	require.NotNil(t, v.MarketData)
	assert.Equal(t, 10.5, v.MarketData.Close)
	require.NotNil(t, v.Prediction)
	assert.Equal(t, models.DirectionSell, v.Prediction.Direction)
	assert.Equal(t, models.OutcomePending, v.Prediction.Outcome)
	require.NotNil(t, v.RollingAccuracy)
	assert.Equal(t, 50.0, *v.RollingAccuracy)
	assert.Nil(t, v.Indicators)
}

func extract(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}

func TestRecentPredictionsEnriched(t *testing.T) {
	e, store, _ := newAPI(t)
	for i := 0; i < 15; i++ {
		_, err := store.AppendPrediction(models.Prediction{AssetID: 6, Timestamp: t0.Add(time.Duration(i) * time.Second), Direction: models.DirectionBuy, Confidence: 70, EntryPoint: 50000})
		require.NoError(t, err)
	}

	rec, env := get(t, e, "/api/predictions/recent")
	require.Equal(t, http.StatusOK, rec.Code)
	var l list
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, int64(10), l.Total)
	var preds []models.EnrichedPrediction
	require.NoError(t, json.Unmarshal(l.Rows, &preds))
	require.NotNil(t, preds[0].Asset)
	assert.Equal(t, "BTCUSD", preds[0].Asset.Symbol)
	assert.True(t, preds[0].Timestamp.After(preds[1].Timestamp))

	rec, _ = get(t, e, "/api/predictions/recent?limit=101")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccuracyEndpoints(t *testing.T) {
	e, store, _ := newAPI(t)
	for i, out := range []models.Outcome{models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomeFailure} {
		id, err := store.AppendPrediction(models.Prediction{AssetID: 1, Timestamp: t0.Add(time.Duration(i) * time.Second), Direction: models.DirectionBuy, Confidence: 70, EntryPoint: 1})
		require.NoError(t, err)
		_, err = store.SetPredictionOutcome(id, out)
		require.NoError(t, err)
	}
	_, err := store.AppendPrediction(models.Prediction{AssetID: 1, Timestamp: t0.Add(time.Minute), Direction: models.DirectionBuy, Confidence: 70, EntryPoint: 1})
	require.NoError(t, err)

	for _, path := range []string{"/api/metrics/accuracy", "/api/metrics"} {
		rec, env := get(t, e, path)
		require.Equal(t, http.StatusOK, rec.Code)
		var m models.AccuracyMetrics
		require.NoError(t, json.Unmarshal(env.Data, &m))
		assert.Equal(t, 66.7, m.Accuracy)
		assert.Equal(t, 2, m.SuccessCount)
		assert.Equal(t, 1, m.FailureCount)
		assert.Equal(t, 3, m.TotalCompleted)
	}
}

type denyAfter struct{ n int }

func (d *denyAfter) Allow(string, float64, float64) bool {
	d.n--
	return d.n >= 0
}

func TestRateLimitedRoutes(t *testing.T) {
	e, _, _ := newAPI(t, WithRateLimit(&denyAfter{n: 2}, 2, 1))

	rec, _ := get(t, e, "/api/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = get(t, e, "/api/assets")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = get(t, e, "/api/assets")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
