// Package metrics holds the Prometheus collectors of the checkout service:
// one set for inbound HTTP requests and one for the outbound calls we make to
// Stripe. They are served on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a Stripe call.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests handled, by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checkout",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests, by endpoint.",
			// Most of the time is spent waiting on Stripe.
			Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	StripeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "stripe_calls_total",
			Help:      "Total calls made to the Stripe API, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, StripeCallsTotal)
}

// ObserveRequest records a finished HTTP request.
func ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveStripeCall records the outcome of a single Stripe API call.
func ObserveStripeCall(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	StripeCallsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
