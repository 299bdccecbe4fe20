// Package metrics exposes Prometheus collectors for the checker service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocheck_loads_total",
		Help: "Total number of successful collection loads",
	})
	LoadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocheck_load_failures_total",
		Help: "Total number of failed collection loads",
	})
	FilterRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geocheck_filter_requests_total",
		Help: "Total number of filter evaluations",
	})
	ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocheck_exports_total",
		Help: "Total number of export downloads by format",
	}, []string{"format"})
	BuildDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geocheck_build_duration_ms",
		Help:    "Attribute table build duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	FeaturesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geocheck_features_loaded",
		Help: "Feature count of the currently loaded collection",
	})
)

func init() {
	prometheus.MustRegister(LoadsTotal)
	prometheus.MustRegister(LoadFailuresTotal)
	prometheus.MustRegister(FilterRequestsTotal)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(BuildDurationMs)
	prometheus.MustRegister(FeaturesLoaded)
}

// Handler returns the HTTP handler serving the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
