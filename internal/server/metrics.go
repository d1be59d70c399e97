package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's instrumentation. Collectors register against a
// private registry so multiple servers can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	predictions *prometheus.CounterVec
	predictSecs prometheus.Histogram
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreform_http_requests_total",
			Help: "HTTP requests served, by method, route, and status.",
		}, []string{"method", "route", "status"}),
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreform_predictions_total",
			Help: "Prediction outcomes, by resulting class or error.",
		}, []string{"outcome"}),
		predictSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scoreform_prediction_duration_seconds",
			Help:    "Latency of classifier calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
