package metrics

import (
	"testing"

	"MarketPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordBar("AAPL", "mock")
	r.RecordBar("AAPL", "mock")
	r.RecordPrediction("AAPL", models.DirectionBuy)
	r.RecordOutcome("AAPL", models.OutcomeSuccess)
	r.RecordLastPrice("AAPL", 175.25)
	r.RecordAccuracy(70)
	r.RecordCycle("ingest", 0.01, 5, 0, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.barsIngested.WithLabelValues("AAPL", "mock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("AAPL", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("AAPL", "SUCCESS")))
	assert.Equal(t, 175.25, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 70.0, testutil.ToFloat64(r.accuracy))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.cycleItems.WithLabelValues("ingest", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycleItems.WithLabelValues("ingest", "failed")))
}

func TestRecordersOnSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
