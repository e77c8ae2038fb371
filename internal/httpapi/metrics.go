package httpapi

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "triptales"

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "itinerary_transitions_total",
			Help:      "Moderation transitions by resulting status",
		},
		[]string{"status"},
	)
)

// ObserveTransition counts a committed moderation transition.
func ObserveTransition(status string) {
	transitionsTotal.WithLabelValues(status).Inc()
}

// routeLabel collapses itinerary ids so label cardinality stays bounded.
func routeLabel(path string) string {
	const prefix = "/api/itineraries/"
	if !strings.HasPrefix(path, prefix) {
		switch path {
		case "/api/health", "/metrics", "/api/itineraries",
			"/api/auth/register", "/api/auth/login", "/api/auth/logout", "/api/auth/me":
			return path
		}
		return "other"
	}
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if strings.HasSuffix(rest, "/status") {
		return prefix + "{id}/status"
	}
	return prefix + "{id}"
}
