package quote

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
)

const (
	mockVolatility = 0.02
	mockMinVolume  = 100_000
	mockVolumeSpan = 1_000_000
	defaultBase    = 100.0
)

var basePrices = map[string]float64{
	"AAPL":   175.25,
	"TSLA":   248.50,
	"GOOGL":  140.75,
	"MSFT":   378.85,
	"EURUSD": 1.0875,
	"BTCUSD": 43250,
}

// BasePrice is the anchor the mock random-walks around.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[strings.ToUpper(symbol)]; ok {
		return p
	}
	return defaultBase
}

// Mock synthesises quotes within ±2% of a fixed base price.
type Mock struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

var _ repository.QuoteSource = (*Mock)(nil)

// NewMock seeds from the clock. Use NewMockWithRand for reproducible output.
func NewMock() *Mock {
	return NewMockWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewMockWithRand(rng *rand.Rand) *Mock {
	return &Mock{rng: rng, now: time.Now}
}

func (m *Mock) Fetch(_ context.Context, symbol string, _ models.AssetClass) (models.Quote, error) {
	m.mu.Lock()
	u := (m.rng.Float64()*2 - 1) * mockVolatility
	vol := mockMinVolume + m.rng.Int63n(mockVolumeSpan)
	m.mu.Unlock()

	base := BasePrice(symbol)
	price := base * (1 + u)
	return models.Quote{
		Symbol:    symbol,
		Price:     price,
		ChangeAbs: price - base,
		ChangePct: u * 100,
		Volume:    vol,
		AsAt:      m.now(),
		Source:    "mock",
	}, nil
}
