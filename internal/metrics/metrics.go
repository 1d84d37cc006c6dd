// Package metrics holds the storefront's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricCheckoutsTotal         = "storefront_checkouts_total"
	MetricPaymentAttemptsTotal   = "storefront_payment_attempts_total"
	MetricPaymentDurationSeconds = "storefront_payment_duration_seconds"
	MetricLoyaltyPointsAwarded   = "storefront_loyalty_points_awarded_total"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	checkouts       *prometheus.CounterVec
	paymentAttempts *prometheus.CounterVec
	paymentDuration *prometheus.HistogramVec
	pointsAwarded   prometheus.Counter
}

// New creates a dedicated registry with the storefront collectors plus the
// Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCheckoutsTotal,
			Help: "Checkouts by payment method and outcome.",
		}, []string{"method", "outcome"}),
		paymentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPaymentAttemptsTotal,
			Help: "Individual payment gateway calls by method and outcome.",
		}, []string{"method", "outcome"}),
		paymentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricPaymentDurationSeconds,
			Help:    "Latency of payment dispatch including retries.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricLoyaltyPointsAwarded,
			Help: "Loyalty points credited to customers.",
		}),
	}
	registry.MustRegister(
		m.checkouts,
		m.paymentAttempts,
		m.paymentDuration,
		m.pointsAwarded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Checkout records a finished checkout.
func (m *Metrics) Checkout(method, outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(method, outcome).Inc()
}

// PaymentAttempt records one gateway call.
func (m *Metrics) PaymentAttempt(method, outcome string) {
	if m == nil {
		return
	}
	m.paymentAttempts.WithLabelValues(method, outcome).Inc()
}

// PaymentDuration observes the time spent dispatching a payment.
func (m *Metrics) PaymentDuration(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.paymentDuration.WithLabelValues(method).Observe(d.Seconds())
}

// PointsAwarded adds to the loyalty points counter.
func (m *Metrics) PointsAwarded(points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAwarded.Add(float64(points))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
