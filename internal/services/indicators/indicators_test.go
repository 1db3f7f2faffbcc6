package indicators

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// risingCloses returns n closes newest first: start+n-1 ... start.
func risingCloses(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = start + float64(n-1-i)
	}
	return out
}

func TestSMAUndefinedBelowPeriod(t *testing.T) {
	_, ok := SMA([]float64{1, 2, 3}, 4)
	assert.False(t, ok)

	v, ok := SMA(risingCloses(100, 25), 20)
	require.True(t, ok)
	assert.InDelta(t, 114.5, v, 1e-9)
}

func TestEMASeriesSeededWithOldestPrice(t *testing.T) {
	// oldest first the sequence is 10, 11, 9
	series := EMASeries([]float64{9, 11, 10}, 2)
	require.Len(t, series, 3)
	assert.InDelta(t, 10.0, series[0], 0.01)
	assert.InDelta(t, 10.667, series[1], 0.01)
	assert.InDelta(t, 9.556, series[2], 0.01)

	v, ok := EMA([]float64{9, 11, 10}, 2)
	require.True(t, ok)
	assert.InDelta(t, 9.556, v, 0.01)
}

func TestEMADefinedFromOnePoint(t *testing.T) {
	v, ok := EMA([]float64{42}, 12)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = EMA(nil, 12)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 50.0, RSI(risingCloses(1, 14), 14), "needs period+1 points")
	assert.Equal(t, 100.0, RSI(risingCloses(100, 25), 14), "no losses")

	// oldest first: 1, 2, 1, 2 -> gains 2, losses 1 over 3 changes
	assert.InDelta(t, 66.667, RSI([]float64{2, 1, 2, 1}, 3), 0.001)

	// only the last period changes count: an old crash is ignored
	prices := append(risingCloses(50, 15), 200)
	assert.Equal(t, 100.0, RSI(prices, 14))
}

func TestMACDPositiveInUptrend(t *testing.T) {
	v, ok := MACD(risingCloses(100, 25))
	require.True(t, ok)
	assert.Greater(t, v, 0.0)

	v, ok = MACD([]float64{5})
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestBollingerBands(t *testing.T) {
	_, ok := BollingerBands([]float64{1}, 2, 2)
	assert.False(t, ok)

	b, ok := BollingerBands([]float64{4, 2, 1000}, 2, 2)
	require.True(t, ok)
	assert.InDelta(t, 3.0, b.Middle, 1e-9)
	assert.InDelta(t, 5.0, b.Upper, 1e-9)
	assert.InDelta(t, 1.0, b.Lower, 1e-9)

	flat, ok := BollingerBands([]float64{7, 7, 7}, 3, 2)
	require.True(t, ok)
	assert.Equal(t, flat.Upper, flat.Lower)
}

func bar(o, h, l, c float64) models.Bar {
	return models.Bar{Open: o, High: h, Low: l, Close: c}
}

func TestDetectHammer(t *testing.T) {
	bars := []models.Bar{bar(10, 10.1, 8, 10.05), bar(10, 10, 10, 10), bar(10, 10, 10, 10)}
	assert.Equal(t, []models.Pattern{models.PatternHammer}, DetectPatterns(bars))
}

func TestDetectShootingStar(t *testing.T) {
	bars := []models.Bar{bar(10, 12, 9.98, 10.05), bar(10, 10, 10, 10), bar(10, 10, 10, 10)}
	assert.Equal(t, []models.Pattern{models.PatternShootingStar}, DetectPatterns(bars))
}

func TestDetectEngulfing(t *testing.T) {
	bull := []models.Bar{bar(8.5, 10.5, 8.5, 10.5), bar(10, 10, 9, 9), bar(10, 10, 10, 10)}
	assert.Equal(t, []models.Pattern{models.PatternBullishEngulfing}, DetectPatterns(bull))

	bear := []models.Bar{bar(10.5, 10.5, 8.5, 8.5), bar(9, 10, 9, 10), bar(10, 10, 10, 10)}
	assert.Equal(t, []models.Pattern{models.PatternBearishEngulfing}, DetectPatterns(bear))
}

func TestDetectPatternsNeedsThreeBars(t *testing.T) {
	bars := []models.Bar{bar(10, 10.1, 8, 10.05), bar(10, 10, 10, 10)}
	assert.Empty(t, DetectPatterns(bars))
}

func risingBars(n int) []models.Bar {
	closes := risingCloses(100, n)
	out := make([]models.Bar, n)
	for i, c := range closes {
		out[i] = models.Bar{AssetID: 1, Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestEngineComputeRequiresTwentyBars(t *testing.T) {
	e := NewEngine(0)
	_, err := e.Compute(1, risingBars(19), time.Now())
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestEngineComputeSnapshot(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	snap, err := NewEngine(0).Compute(1, risingBars(25), at)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.AssetID)
	assert.Equal(t, at, snap.Timestamp)
	require.NotNil(t, snap.SMA20)
	assert.InDelta(t, 114.5, *snap.SMA20, 1e-9)
	assert.Equal(t, 100.0, *snap.RSI14)
	assert.Greater(t, *snap.MACD, 0.0)
	assert.Less(t, *snap.EMA12, 124.0)
	assert.Greater(t, *snap.BollingerUpper, *snap.SMA20)
	assert.Less(t, *snap.BollingerLower, *snap.SMA20)
}
