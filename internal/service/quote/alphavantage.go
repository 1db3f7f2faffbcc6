package quote

import (
	"context"
	"strconv"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	apphttp "MarketPulse/pkg/http"
)

const DefaultAlphaVantageURL = "https://www.alphavantage.co"

// AlphaVantage quotes currency pairs such as EURUSD.
type AlphaVantage struct {
	upstream
}

func NewAlphaVantage(ep Endpoint, client *apphttp.Client, limiter *ratelimit.Limiter) *AlphaVantage {
	if ep.BaseURL == "" {
		ep.BaseURL = DefaultAlphaVantageURL
	}
	return &AlphaVantage{upstream: newUpstream("alphavantage", ep, client, limiter)}
}

func (a *AlphaVantage) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := a.requireKey(); err != nil {
		return models.Quote{}, err
	}
	if len(symbol) < 6 {
		return models.Quote{}, a.malformed(symbol, "not a currency pair")
	}

	var body map[string]map[string]string
	err := a.get(ctx, &apphttp.RequestOptions{
		URL: a.endpoint.BaseURL + "/query",
		QueryParams: map[string][]string{
			"function":      {"CURRENCY_EXCHANGE_RATE"},
			"from_currency": {symbol[:3]},
			"to_currency":   {symbol[3:6]},
			"apikey":        {a.endpoint.APIKey},
		},
	}, &body)
	if err != nil {
		return models.Quote{}, err
	}

	raw, ok := body["Realtime Currency Exchange Rate"]["5. Exchange Rate"]
	if !ok {
		return models.Quote{}, a.malformed(symbol, "missing exchange rate")
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Quote{}, a.malformed(symbol, "bad exchange rate "+strconv.Quote(raw))
	}
	if err := a.checkPrice(symbol, price); err != nil {
		return models.Quote{}, err
	}
	// the endpoint carries no reference price, so change stays zero
	return a.normalize(models.Quote{Symbol: symbol, Price: price}), nil
}
