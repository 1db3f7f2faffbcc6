package metrics

import (
	"MarketPulse/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsIngested  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	predictions   *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	accuracy      prometheus.Gauge
	cycleDuration *prometheus.HistogramVec
	cycleItems    *prometheus.CounterVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		barsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_bars_ingested_total",
				Help: "Total number of bars appended to the store",
			},
			[]string{"symbol", "source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last recorded close for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_predictions_total",
				Help: "Predictions generated",
			},
			[]string{"symbol", "direction"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_prediction_outcomes_total",
				Help: "Predictions resolved by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		accuracy: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketpulse_prediction_accuracy_percent",
				Help: "Accuracy over recently resolved predictions",
			},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_task_cycle_seconds",
				Help:    "Duration of one scheduler task cycle",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"task"},
		),
		cycleItems: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_task_items_total",
				Help: "Per-asset results of scheduler task cycles",
			},
			[]string{"task", "status"},
		),
	}
}

func (r *Recorder) RecordBar(symbol, source string) {
	r.barsIngested.WithLabelValues(symbol, source).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPrediction(symbol string, direction models.Direction) {
	r.predictions.WithLabelValues(symbol, string(direction)).Inc()
}

func (r *Recorder) RecordOutcome(symbol string, outcome models.Outcome) {
	r.outcomes.WithLabelValues(symbol, string(outcome)).Inc()
}

func (r *Recorder) RecordAccuracy(accuracy float64) {
	r.accuracy.Set(accuracy)
}

// RecordCycle records one scheduler cycle and its per-asset result counts.
func (r *Recorder) RecordCycle(task string, seconds float64, done, skipped, failed int) {
	r.cycleDuration.WithLabelValues(task).Observe(seconds)
	r.cycleItems.WithLabelValues(task, "done").Add(float64(done))
	r.cycleItems.WithLabelValues(task, "skipped").Add(float64(skipped))
	r.cycleItems.WithLabelValues(task, "failed").Add(float64(failed))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordBar(string, string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordPrediction(string, models.Direction) {}
func (Nop) RecordOutcome(string, models.Outcome) {}
func (Nop) RecordAccuracy(float64) {}
func (Nop) RecordCycle(string, float64, int, int, int) {}
