package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "manualrag",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, including query embedding",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"scope", "mode"}, // scope: "manual" / "all" / "category"
	)

	SearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualrag",
			Name:      "search_errors_total",
			Help:      "Searches that returned an error",
		},
		[]string{"scope", "mode"},
	)

	ManualSearchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "manualrag",
			Name:      "manual_search_failures_total",
			Help:      "Per-manual searches that failed and were left out of a merged result",
		},
		[]string{"product"},
	)

	ManualsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "manualrag",
			Name:      "manuals_loaded",
			Help:      "Number of manuals with a loaded searcher",
		},
	)

	ManualLoadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "manualrag",
			Name:      "manual_load_failures_total",
			Help:      "Catalog entries whose indexes failed to load",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchErrorsTotal)
	prometheus.MustRegister(ManualSearchFailuresTotal)
	prometheus.MustRegister(ManualsLoaded)
	prometheus.MustRegister(ManualLoadFailuresTotal)
	searchMetricsRegistered = true
}
