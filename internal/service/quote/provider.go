// Package quote fetches spot prices from upstream market data providers.
package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/ratelimit"
	apphttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/util"
)

// Provider quotes one asset class.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Endpoint describes how to reach one upstream.
type Endpoint struct {
	BaseURL string
	APIKey  string
	Burst   float64 // bucket capacity, 0 disables throttling
	Refill  float64 // tokens per second
}

// upstream holds what every HTTP provider shares: the client, the key check
// and the throttle.
type upstream struct {
	name     string
	endpoint Endpoint
	client   *apphttp.Client
	limiter  *ratelimit.Limiter
	now      func() time.Time
}

func newUpstream(name string, ep Endpoint, client *apphttp.Client, limiter *ratelimit.Limiter) upstream {
	if client == nil {
		client = apphttp.NewClient(apphttp.WithTimeout(10 * time.Second))
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return upstream{name: name, endpoint: ep, client: client, limiter: limiter, now: time.Now}
}

func (u upstream) Name() string { return u.name }

func (u upstream) requireKey() error {
	if u.endpoint.APIKey == "" {
		return fmt.Errorf("%s: no api key configured: %w", u.name, models.ErrProviderUnavailable)
	}
	return nil
}

// get performs a throttled GET and decodes the JSON body into dest.
func (u upstream) get(ctx context.Context, opts *apphttp.RequestOptions, dest any) error {
	if !u.limiter.Allow(u.name, u.endpoint.Burst, u.endpoint.Refill) {
		return fmt.Errorf("%s: rate limited: %w", u.name, models.ErrProviderUnavailable)
	}
	if err := u.client.GetJSON(ctx, opts, dest); err != nil {
		var se *apphttp.StatusError
		var de *apphttp.DecodeError
		if errors.As(err, &se) || errors.As(err, &de) {
			return fmt.Errorf("%s: %w: %w", u.name, models.ErrProviderError, err)
		}
		return fmt.Errorf("%s: %w: %w", u.name, models.ErrProviderUnavailable, err)
	}
	return nil
}

// checkPrice rejects prices that are not finite and positive.
func (u upstream) checkPrice(symbol string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return u.malformed(symbol, fmt.Sprintf("bad price %v", price))
	}
	return nil
}

func (u upstream) malformed(symbol, what string) error {
	return fmt.Errorf("%s: %s: %s: %w", u.name, symbol, what, models.ErrProviderError)
}

// normalize rounds prices to a stable precision and stamps the quote.
func (u upstream) normalize(q models.Quote) models.Quote {
	q.Price = util.Round(q.Price, 6)
	q.ChangeAbs = util.Round(q.ChangeAbs, 6)
	q.ChangePct = util.Round(q.ChangePct, 4)
	q.AsAt = u.now()
	q.Source = u.name
	return q
}

// Router dispatches to the provider registered for an asset class.
type Router struct {
	providers map[models.AssetClass]Provider
	metrics   repository.Metrics
}

var _ repository.QuoteSource = (*Router)(nil)

func NewRouter(metrics repository.Metrics) *Router {
	return &Router{providers: make(map[models.AssetClass]Provider), metrics: metrics}
}

// Register binds p to class, replacing any earlier provider.
func (r *Router) Register(class models.AssetClass, p Provider) *Router {
	r.providers[class] = p
	return r
}

func (r *Router) Fetch(ctx context.Context, symbol string, class models.AssetClass) (models.Quote, error) {
	p, ok := r.providers[class]
	if !ok {
		return models.Quote{}, fmt.Errorf("asset class %q: %w", class, models.ErrProviderUnavailable)
	}

	start := time.Now()
	q, err := p.Quote(ctx, symbol)
	if r.metrics != nil {
		r.metrics.RecordLatency("quote."+p.Name(), time.Since(start).Seconds())
	}
	return q, err
}
