// Package metrics exposes Prometheus instrumentation for the POS backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the registered collectors.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	OrdersCreated   *prometheus.CounterVec
	PaymentsSettled *prometheus.CounterVec
}

// New registers and returns the POS metrics.
func New() *Metrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caisse_pos",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "caisse_pos",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caisse_pos",
		Name:      "orders_created_total",
		Help:      "Orders created, by order type.",
	}, []string{"type"})

	paymentsSettled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "caisse_pos",
		Name:      "payments_settled_total",
		Help:      "Payments settled, by method.",
	}, []string{"method"})

	prometheus.MustRegister(requests, latency, ordersCreated, paymentsSettled)

	return &Metrics{
		HTTPRequests:    requests,
		HTTPLatency:     latency,
		OrdersCreated:   ordersCreated,
		PaymentsSettled: paymentsSettled,
	}
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(handler string, status int, started time.Time) {
	m.HTTPRequests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(handler).Observe(float64(time.Since(started).Milliseconds()))
}
