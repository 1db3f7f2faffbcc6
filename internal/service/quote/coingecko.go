package quote

import (
	"context"
	"strings"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/service/ratelimit"
	apphttp "MarketPulse/pkg/http"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com"

var coinIDs = map[string]string{
	"BTCUSD": "bitcoin",
	"ETHUSD": "ethereum",
	"ADAUSD": "cardano",
	"DOTUSD": "polkadot",
}

// CoinID maps a USD crypto pair to its CoinGecko id.
func CoinID(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if id, ok := coinIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(strings.Replace(symbol, "USD", "", 1))
}

type coinPrice struct {
	USD       *float64 `json:"usd"`
	Change24h float64  `json:"usd_24h_change"`
	Vol24h    float64  `json:"usd_24h_vol"`
}

// CoinGecko quotes crypto pairs. The public endpoint needs no key.
type CoinGecko struct {
	upstream
}

func NewCoinGecko(ep Endpoint, client *apphttp.Client, limiter *ratelimit.Limiter) *CoinGecko {
	if ep.BaseURL == "" {
		ep.BaseURL = DefaultCoinGeckoURL
	}
	return &CoinGecko{upstream: newUpstream("coingecko", ep, client, limiter)}
}

func (c *CoinGecko) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	id := CoinID(symbol)

	var body map[string]coinPrice
	err := c.get(ctx, &apphttp.RequestOptions{
		URL: c.endpoint.BaseURL + "/api/v3/simple/price",
		QueryParams: map[string][]string{
			"ids":                 {id},
			"vs_currencies":       {"usd"},
			"include_24hr_change": {"true"},
			"include_24hr_vol":    {"true"},
		},
	}, &body)
	if err != nil {
		return models.Quote{}, err
	}

	cp, ok := body[id]
	if !ok || cp.USD == nil {
		return models.Quote{}, c.malformed(symbol, "no price for "+id)
	}
	price := *cp.USD
	if err := c.checkPrice(symbol, price); err != nil {
		return models.Quote{}, err
	}
	q := models.Quote{Symbol: symbol, Price: price, ChangePct: cp.Change24h, Volume: int64(cp.Vol24h)}
	if cp.Change24h > -100 {
		q.ChangeAbs = price - price/(1+cp.Change24h/100)
	}
	return c.normalize(q), nil
}
