package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	daysProcessed  *prometheus.CounterVec
	aggregateRows  prometheus.Counter
	cacheHits      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	droppedSymbols *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		daysProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tonefx_days_processed_total",
				Help: "Days processed by the collector, labelled by outcome",
			},
			[]string{"outcome"},
		),
		aggregateRows: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tonefx_aggregate_rows_total",
				Help: "Daily aggregate rows produced across all days",
			},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tonefx_cache_hits_total",
				Help: "Cache hits by tier (day, dataset, quote)",
			},
			[]string{"tier"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tonefx_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tonefx_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		droppedSymbols: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tonefx_instruments_dropped_total",
				Help: "Instruments dropped for excessive missing price data",
			},
			[]string{"symbol"},
		),
	}
}

// RecordDay counts one processed day with its outcome.
func (r *Recorder) RecordDay(outcome string) {
	r.daysProcessed.WithLabelValues(outcome).Inc()
}

// RecordAggregateRows counts produced aggregate rows.
func (r *Recorder) RecordAggregateRows(n int) {
	r.aggregateRows.Add(float64(n))
}

// RecordCacheHit counts a cache hit for a tier.
func (r *Recorder) RecordCacheHit(tier string) {
	r.cacheHits.WithLabelValues(tier).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordInstrumentDropped counts a dropped price instrument.
func (r *Recorder) RecordInstrumentDropped(symbol string) {
	r.droppedSymbols.WithLabelValues(symbol).Inc()
}
