package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "satis"

// Callback outcome labels
const (
	OutcomeSettled        = "settled"
	OutcomeAlreadySettled = "already_settled"
	OutcomeRejected       = "rejected"
	OutcomeOrderNotFound  = "order_not_found"
	OutcomeError          = "error"
)

// Metrics groups the collectors the order and payment paths report to
type Metrics struct {
	registry *prometheus.Registry

	Callbacks          *prometheus.CounterVec
	Cancellations      *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
	StockUnderflows    prometheus.Counter
	RateLimited        *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payments", Name: "callbacks_total",
			Help: "Payment provider callbacks by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "cancellations_total",
			Help: "Order cancellation attempts by outcome.",
		}, []string{"outcome"}),
		SideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "side_effect_failures_total",
			Help: "Post-commit side effects that returned an error or panicked.",
		}, []string{"effect"}),
		StockUnderflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_underflow_total",
			Help: "Stock decrements clamped at zero because stock was insufficient.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.Callbacks,
		m.Cancellations,
		m.SideEffectFailures,
		m.StockUnderflows,
		m.RateLimited,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var instance *Metrics

// Init creates the process-wide collectors
func Init() *Metrics {
	instance = New()
	return instance
}

// Get returns the process-wide collectors, creating them on first use
func Get() *Metrics {
	if instance == nil {
		instance = New()
	}
	return instance
}

// Set replaces the process-wide collectors (primarily for testing)
func Set(m *Metrics) {
	instance = m
}
