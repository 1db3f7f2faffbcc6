// Package indicators computes technical indicators over closing prices.
//
// Every function takes prices newest first, the order the store returns
// history in, and reverses internally where the formula runs forward in time.
package indicators

import (
	"math"

	"MarketPulse/internal/domain/models"
)

const (
	SMAPeriod       = 20
	EMAPeriod       = 12
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	BollingerPeriod = 20
	BollingerWidth  = 2.0

	// neutralRSI is reported when there are too few points for a reading.
	neutralRSI = 50.0
)

// Closes extracts closing prices from bars, preserving order.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func oldestFirst(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[len(prices)-1-i] = p
	}
	return out
}

// SMA is the mean of the most recent period prices. ok is false when fewer
// than period prices exist.
func SMA(prices []float64, period int) (value float64, ok bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[:period] {
		sum += p
	}
	return sum / float64(period), true
}

// EMASeries returns the exponential moving average at every point, oldest
// first. The first price seeds the average; k = 2/(period+1).
func EMASeries(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}
	seq := oldestFirst(prices)
	k := 2.0 / float64(period+1)
	out := make([]float64, len(seq))
	out[0] = seq[0]
	for i := 1; i < len(seq); i++ {
		out[i] = seq[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMA returns the latest exponential moving average. It is defined as soon
// as one price exists.
func EMA(prices []float64, period int) (float64, bool) {
	series := EMASeries(prices, period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// RSI is the relative strength index over the last period price changes.
// It is 50 with fewer than period+1 prices and 100 when nothing was lost.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return neutralRSI
	}
	// prices[0] is newest, so prices[i] - prices[i+1] is a forward change.
	var gain, loss float64
	for i := 0; i < period; i++ {
		d := prices[i] - prices[i+1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD is EMA(12) - EMA(26).
func MACD(prices []float64) (float64, bool) {
	fast, ok := EMA(prices, MACDFast)
	if !ok {
		return 0, false
	}
	slow, _ := EMA(prices, MACDSlow)
	return fast - slow, true
}

// Bands is a Bollinger envelope around its middle SMA.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands returns SMA(period) ± width·σ, with σ the population
// standard deviation of the same window.
func BollingerBands(prices []float64, period int, width float64) (Bands, bool) {
	mean, ok := SMA(prices, period)
	if !ok {
		return Bands{}, false
	}
	variance := 0.0
	for _, p := range prices[:period] {
		variance += (p - mean) * (p - mean)
	}
	sd := math.Sqrt(variance / float64(period))
	return Bands{Upper: mean + width*sd, Middle: mean, Lower: mean - width*sd}, true
}
