// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// HTTPRequests counts served requests.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contenthub_http_requests_total",
		Help: "Total HTTP requests",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration observes request latency.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "contenthub_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"method", "route"},
)

// AuthEvents counts register/login/refresh/logout attempts by outcome.
var AuthEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contenthub_auth_events_total",
		Help: "Authentication events by type and outcome",
	},
	[]string{"event", "outcome"},
)

// ContentEvents counts content lifecycle transitions.
var ContentEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contenthub_content_events_total",
		Help: "Content lifecycle events by kind and action",
	},
	[]string{"kind", "action"},
)

// RegisterMetrics registers every collector with reg.  Panics on a
// duplicate registration, following prometheus convention.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, HTTPDuration, AuthEvents, ContentEvents)
}

// RecordHTTP records one served request.
func RecordHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAuth increments the auth event counter.
func RecordAuth(event string, ok bool) {
	outcome := OutcomeFailure
	if ok {
		outcome = OutcomeSuccess
	}
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordContent increments the content event counter.
func RecordContent(kind, action string) {
	ContentEvents.WithLabelValues(kind, action).Inc()
}
