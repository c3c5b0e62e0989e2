// Package metrics exposes the Prometheus collectors of the studio and the AI
// backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookcraft"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Calls made to the AI backend by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "AI backend call latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	DirectivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "directives_total",
			Help:      "Directives dispatched from AI replies by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "generations_total",
			Help:      "Document generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gemini",
			Name:      "calls_total",
			Help:      "Gemini calls made by the reference backend by task and outcome",
		},
		[]string{"task", "outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
