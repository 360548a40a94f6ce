package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the settlement backend.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	statementTransitions *prometheus.CounterVec
	paymentOperations    *prometheus.CounterVec
	batchTransitions     *prometheus.CounterVec
}

// NewMetrics initialises a private registry with the HTTP and settlement metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	statements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_statement_transitions_total",
		Help: "Statement status changes by action and target status.",
	}, []string{"action", "from", "to"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_payment_operations_total",
		Help: "Payment ledger mutations by operation.",
	}, []string{"operation"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_batch_transitions_total",
		Help: "Payment batch status changes by target status.",
	}, []string{"to"})
	registry.MustRegister(requests, duration, statements, payments, batches)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		statementTransitions: statements,
		paymentOperations:    payments,
		batchTransitions:     batches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// GinMiddleware records request count and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// StatementTransition counts a statement audit action and its status change.
func (m *Metrics) StatementTransition(action, from, to string) {
	if m == nil {
		return
	}
	m.statementTransitions.WithLabelValues(action, from, to).Inc()
}

// PaymentOperation counts a ledger mutation such as add, update or void.
func (m *Metrics) PaymentOperation(operation string) {
	if m == nil {
		return
	}
	m.paymentOperations.WithLabelValues(operation).Inc()
}

// BatchTransition counts a batch reaching a new status.
func (m *Metrics) BatchTransition(to string) {
	if m == nil {
		return
	}
	m.batchTransitions.WithLabelValues(to).Inc()
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}
