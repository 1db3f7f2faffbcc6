package quote

import (
	"math"
	"time"

	"MarketPulse/internal/domain/models"
)

// DefaultWick is the fraction added above and below the body of a bar built
// from a single quote.
const DefaultWick = 0.0005

// ToBar turns a spot quote into a bar. The previous close, when known, opens
// the bar so consecutive bars join up; high and low bracket the body.
func ToBar(assetID int64, q models.Quote, prevClose *float64, at time.Time, wick float64) models.Bar {
	if wick < 0 {
		wick = 0
	}
	open := q.Price
	if prevClose != nil && *prevClose > 0 {
		open = *prevClose
	}
	hi := math.Max(open, q.Price)
	lo := math.Min(open, q.Price)
	vol := q.Volume
	if vol < 0 {
		vol = 0
	}
	return models.Bar{
		AssetID:   assetID,
		Timestamp: at,
		Open:      open,
		High:      hi * (1 + wick),
		Low:       lo * (1 - wick),
		Close:     q.Price,
		Volume:    vol,
	}
}
