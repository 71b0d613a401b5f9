package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bordersnapper_runs_total",
		Help: "Total number of reconciliation runs",
	})
	RunFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bordersnapper_run_failures_total",
		Help: "Failed runs by error class",
	}, []string{"class"})
	RunDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bordersnapper_run_duration_ms",
		Help:    "Reconciliation run duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
	EmptyResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bordersnapper_empty_results_total",
		Help: "Total number of runs whose result geometry is empty",
	})
	SessionHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bordersnapper_session_hits_total",
		Help: "Runs answered from the session cache",
	})
	BoundaryCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bordersnapper_boundary_cache_hits_total",
		Help: "Boundary cache hits by tier",
	}, []string{"tier"})
	BoundaryCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bordersnapper_boundary_cache_misses_total",
		Help: "Boundary downloads caused by cache misses",
	})
	BoundaryFetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bordersnapper_boundary_fetch_duration_ms",
		Help:    "Boundary download duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	})
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunFailuresTotal)
	prometheus.MustRegister(RunDurationMs)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(SessionHitsTotal)
	prometheus.MustRegister(BoundaryCacheHitsTotal)
	prometheus.MustRegister(BoundaryCacheMissesTotal)
	prometheus.MustRegister(BoundaryFetchDurationMs)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }
