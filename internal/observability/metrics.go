// Package observability registers and records Prometheus metrics for the
// service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	runDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rasterise_run_duration_seconds",
			Help:    "Duration of whole rasterisation runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"outcome"},
	)

	cellsClassifiedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cells_classified_total",
			Help: "Total grid cells classified across all runs.",
		},
	)

	gridCells = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fishnet_grid_cells",
			Help:    "Cell count of generated fishnets.",
			Buckets: prometheus.ExponentialBuckets(100, 4, 10),
		},
	)

	boundaryLookupSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boundary_lookup_seconds",
			Help:    "Latency of boundary source lookups in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"source"},
	)

	boundaryCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_cache_results_total",
			Help: "Boundary cache results by outcome.",
		},
		[]string{"cache", "outcome"},
	)

	cacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_seconds",
			Help:    "Latency of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "status"},
	)

	invalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_invalidations_total",
			Help: "Processed boundary invalidation events by op and status.",
		},
		[]string{"op", "status"},
	)

	invalidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invalidation_consumer_errors_total",
			Help: "Invalidation consumer errors by kind.",
		},
		[]string{"kind"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveRun(err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	runDurationSeconds.WithLabelValues(outcome).Observe(durationSeconds)
}

func AddCellsClassified(n int) {
	if n > 0 {
		cellsClassifiedTotal.Add(float64(n))
	}
}

func ObserveGridCells(n int) {
	gridCells.Observe(float64(n))
}

func ObserveBoundaryLookup(source string, durationSeconds float64) {
	boundaryLookupSeconds.WithLabelValues(source).Observe(durationSeconds)
}

func IncBoundaryCacheHit(cache string) {
	boundaryCacheResults.WithLabelValues(cache, "hit").Inc()
}

func IncBoundaryCacheMiss(cache string) {
	boundaryCacheResults.WithLabelValues(cache, "miss").Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cacheOpSeconds.WithLabelValues(op, status).Observe(durationSeconds)
}

func ObserveInvalidation(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	invalidationsTotal.WithLabelValues(op, status).Inc()
}

func IncInvalidationError(kind string) {
	invalidationErrors.WithLabelValues(kind).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
