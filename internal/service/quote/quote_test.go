package quote

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooParsesChart(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "k1", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":110,"previousClose":100},
			"indicators":{"quote":[{"volume":[10,null,5000]}]}}]}}`))
	})

	q, err := NewYahoo(Endpoint{BaseURL: srv.URL, APIKey: "k1"}, nil, nil).Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 110.0, q.Price)
	assert.Equal(t, 10.0, q.ChangeAbs)
	assert.Equal(t, 10.0, q.ChangePct)
	assert.Equal(t, int64(5000), q.Volume)
	assert.Equal(t, "yahoo", q.Source)
}

func TestYahooWithoutKeyIsUnavailable(t *testing.T) {
	_, err := NewYahoo(Endpoint{BaseURL: "http://127.0.0.1:0"}, nil, nil).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestYahooHTTPErrorIsProviderError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	})
	_, err := NewYahoo(Endpoint{BaseURL: srv.URL, APIKey: "k"}, nil, nil).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderError)
}

func TestYahooEmptyResult(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[]}}`))
	})
	_, err := NewYahoo(Endpoint{BaseURL: srv.URL, APIKey: "k"}, nil, nil).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderError)
}

func TestAlphaVantageExchangeRate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "CURRENCY_EXCHANGE_RATE", q.Get("function"))
		assert.Equal(t, "EUR", q.Get("from_currency"))
		assert.Equal(t, "USD", q.Get("to_currency"))
		assert.Equal(t, "av", q.Get("apikey"))
		_, _ = w.Write([]byte(`{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"1.08750000"}}`))
	})

	q, err := NewAlphaVantage(Endpoint{BaseURL: srv.URL, APIKey: "av"}, nil, nil).Quote(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.0875, q.Price)
	assert.Zero(t, q.ChangeAbs)
}

func TestAlphaVantageMissingRate(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note":"call frequency exceeded"}`))
	})
	_, err := NewAlphaVantage(Endpoint{BaseURL: srv.URL, APIKey: "av"}, nil, nil).Quote(context.Background(), "EURUSD")
	assert.ErrorIs(t, err, models.ErrProviderError)
}

func TestAlphaVantageNonFiniteRate(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
		t.Run(raw, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"` + raw + `"}}`))
			})
			av := NewAlphaVantage(Endpoint{BaseURL: srv.URL, APIKey: "av"}, nil, nil)

			_, err := av.Quote(context.Background(), "EURUSD")
			assert.ErrorIs(t, err, models.ErrProviderError)

			router := NewRouter(metrics.Nop{}).Register(models.ClassForex, av)
			f := NewFallback(router, NewMockWithRand(rand.New(rand.NewSource(3))), nil, metrics.Nop{})
			var q models.Quote
			require.NotPanics(t, func() { q, err = f.Fetch(context.Background(), "EURUSD", models.ClassForex) })
			require.NoError(t, err)
			assert.Equal(t, "mock", q.Source)
			assert.InDelta(t, 1.0875, q.Price, 1.0875*0.02)
		})
	}
}

func TestMalformedBodyIsProviderError(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":`))
	})
	_, err := NewYahoo(Endpoint{BaseURL: srv.URL, APIKey: "k"}, nil, nil).Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrProviderError)
	assert.NotErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestUnreachableUpstreamIsUnavailable(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	_, err := NewCoinGecko(Endpoint{BaseURL: url}, nil, nil).Quote(context.Background(), "BTCUSD")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, models.ErrProviderError)
}

func TestCoinGeckoSimplePrice(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":44000,"usd_24h_change":10,"usd_24h_vol":123456.7}}`))
	})

	q, err := NewCoinGecko(Endpoint{BaseURL: srv.URL}, nil, nil).Quote(context.Background(), "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, 44000.0, q.Price)
	assert.Equal(t, 10.0, q.ChangePct)
	assert.InDelta(t, 4000.0, q.ChangeAbs, 1e-6)
	assert.Equal(t, int64(123456), q.Volume)
}

func TestCoinID(t *testing.T) {
	assert.Equal(t, "bitcoin", CoinID("BTCUSD"))
	assert.Equal(t, "polkadot", CoinID("dotusd"))
	assert.Equal(t, "sol", CoinID("SOLUSD"))
}

func TestRateLimitedProviderIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	})
	now := time.Now()
	cg := NewCoinGecko(Endpoint{BaseURL: srv.URL, Burst: 1, Refill: 0.1}, nil, ratelimit.NewWithClock(func() time.Time { return now }))

	_, err := cg.Quote(context.Background(), "BTCUSD")
	require.NoError(t, err)
	_, err = cg.Quote(context.Background(), "BTCUSD")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRouterUnknownClass(t *testing.T) {
	r := NewRouter(metrics.Nop{})
	_, err := r.Fetch(context.Background(), "AAPL", models.ClassStock)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestMockWithinTwoPercent(t *testing.T) {
	m := NewMockWithRand(rand.New(rand.NewSource(7)))
	for i := 0; i < 500; i++ {
		q, err := m.Fetch(context.Background(), "AAPL", models.ClassStock)
		require.NoError(t, err)
		assert.InDelta(t, 175.25, q.Price, 175.25*0.02+1e-9)
		assert.GreaterOrEqual(t, q.Volume, int64(100_000))
		assert.Less(t, q.Volume, int64(1_100_000))
		assert.Equal(t, "mock", q.Source)
	}

	q, _ := m.Fetch(context.Background(), "XYZ", models.ClassStock)
	assert.InDelta(t, 100.0, q.Price, 2.0+1e-9)
}

func TestMockDeterministicWithSeed(t *testing.T) {
	a, _ := NewMockWithRand(rand.New(rand.NewSource(42))).Fetch(context.Background(), "TSLA", models.ClassStock)
	b, _ := NewMockWithRand(rand.New(rand.NewSource(42))).Fetch(context.Background(), "TSLA", models.ClassStock)
	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.Volume, b.Volume)
}

type failingSource struct{ err error }

func (f failingSource) Fetch(context.Context, string, models.AssetClass) (models.Quote, error) {
	return models.Quote{}, f.err
}

func TestFallbackServesMockOnFailure(t *testing.T) {
	f := NewFallback(failingSource{err: models.ErrProviderError}, NewMockWithRand(rand.New(rand.NewSource(1))), nil, metrics.Nop{})
	q, err := f.Fetch(context.Background(), "BTCUSD", models.ClassCrypto)
	require.NoError(t, err)
	assert.Equal(t, "mock", q.Source)
	assert.InDelta(t, 43250.0, q.Price, 43250*0.02)
}

func TestFallbackPassesThroughSuccess(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2500}}`))
	})
	router := NewRouter(metrics.Nop{}).Register(models.ClassCrypto, NewCoinGecko(Endpoint{BaseURL: srv.URL}, nil, nil))
	f := NewFallback(router, NewMock(), nil, nil)

	q, err := f.Fetch(context.Background(), "ETHUSD", models.ClassCrypto)
	require.NoError(t, err)
	assert.Equal(t, "coingecko", q.Source)
	assert.Equal(t, 2500.0, q.Price)
}

func TestToBarKeepsOHLCInvariant(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := 101.0

	b := ToBar(1, models.Quote{Price: 100, Volume: 10}, &prev, at, DefaultWick)
	assert.True(t, b.Valid())
	assert.Equal(t, 101.0, b.Open)
	assert.Equal(t, 100.0, b.Close)
	assert.Greater(t, b.High, 101.0)
	assert.Less(t, b.Low, 100.0)
	assert.Equal(t, at, b.Timestamp)

	first := ToBar(1, models.Quote{Price: 50}, nil, at, 0)
	assert.True(t, first.Valid())
	assert.Equal(t, 50.0, first.Open)
	assert.Equal(t, 50.0, first.High)
	assert.Equal(t, 50.0, first.Low)
}
