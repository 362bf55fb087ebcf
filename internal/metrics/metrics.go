// Package metrics declares the prometheus collectors of the estimator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_estimates_total",
			Help: "Total number of submitted projects",
		},
		[]string{"project_type"},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_mutations_total",
			Help: "Total number of selection changes by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CatalogFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_catalog_fallbacks_total",
			Help: "Requirements priced with the synthetic default because no catalog entry matched",
		},
		[]string{"material"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimator_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
