package quote

import (
	"context"
	"net/url"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	apphttp "MarketPulse/pkg/http"
)

const DefaultYahooURL = "https://query1.finance.yahoo.com"

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Volume []*int64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Yahoo quotes equities from the chart endpoint.
type Yahoo struct {
	upstream
}

func NewYahoo(ep Endpoint, client *apphttp.Client, limiter *ratelimit.Limiter) *Yahoo {
	if ep.BaseURL == "" {
		ep.BaseURL = DefaultYahooURL
	}
	return &Yahoo{upstream: newUpstream("yahoo", ep, client, limiter)}
}

func (y *Yahoo) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := y.requireKey(); err != nil {
		return models.Quote{}, err
	}

	var body yahooChart
	err := y.get(ctx, &apphttp.RequestOptions{
		URL:     y.endpoint.BaseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Headers: map[string]string{"X-API-Key": y.endpoint.APIKey},
	}, &body)
	if err != nil {
		return models.Quote{}, err
	}
	if len(body.Chart.Result) == 0 {
		return models.Quote{}, y.malformed(symbol, "empty chart result")
	}

	r := body.Chart.Result[0]
	price, prev := r.Meta.RegularMarketPrice, r.Meta.PreviousClose
	if err := y.checkPrice(symbol, price); err != nil {
		return models.Quote{}, err
	}

	q := models.Quote{Symbol: symbol, Price: price}
	if prev > 0 {
		q.ChangeAbs = price - prev
		q.ChangePct = (price - prev) / prev * 100
	}
	if len(r.Indicators.Quote) > 0 {
		vols := r.Indicators.Quote[0].Volume
		if n := len(vols); n > 0 && vols[n-1] != nil {
			q.Volume = *vols[n-1]
		}
	}
	return y.normalize(q), nil
}
