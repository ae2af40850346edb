// Package metrics exposes Prometheus collectors for the order engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "order_engine"

// Metrics groups every collector. All methods are safe on a nil receiver.
type Metrics struct {
	ordersCreated    *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	paymentCallbacks *prometheus.CounterVec
	outboxRelayed    *prometheus.CounterVec
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Order creation attempts by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Lifecycle transitions by action and result.",
		}, []string{"action", "result"}),
		paymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Payment gateway callbacks by outcome.",
		}, []string{"outcome"}),
		outboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_relayed_total",
			Help:      "Outbox events handed to the broker by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.ordersCreated, m.transitions, m.paymentCallbacks, m.outboxRelayed, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Result labels an operation outcome: "ok" or the error kind.
func Result(kind string) string {
	if kind == "" {
		return "ok"
	}
	return kind
}

func (m *Metrics) OrderCreated(result string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(action, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) PaymentCallback(outcome string) {
	if m == nil {
		return
	}
	m.paymentCallbacks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OutboxRelayed(result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.outboxRelayed.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
