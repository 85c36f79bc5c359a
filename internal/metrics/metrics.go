// Package metrics exposes Prometheus collectors for the aggregation loop
// and the HTTP API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "novelseek"

// Aggregation metrics.
var (
	FetchRoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_rounds_total",
			Help:      "Total number of concurrent fetch rounds",
		},
	)

	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Platform page fetches by outcome",
		},
		[]string{"platform", "status"}, // status: ok, error, exhausted
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Platform page fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"platform"},
	)

	PromotedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranked_promotions_total",
			Help:      "Candidates appended to ranked pools",
		},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Search sessions currently held in memory",
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchRoundsTotal,
			SourceFetchTotal,
			SourceFetchDuration,
			PromotedTotal,
			SessionsActive,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
