// Package metrics holds the Prometheus collectors of the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution results.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
)

var (
	MappingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_mappings_created_total",
			Help: "Total number of mappings created",
		},
	)

	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_resolutions_total",
			Help: "Total number of short code resolutions",
		},
		[]string{"result"}, // "found" or "not_found"
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route", "status"},
	)
)
