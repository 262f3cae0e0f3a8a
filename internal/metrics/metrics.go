package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. Build one per process
// with New and pass it to the handlers that record into it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	statusEvents  *prometheus.CounterVec
	callsPlaced   *prometheus.CounterVec
	verifications *prometheus.CounterVec
	instructions  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		httpInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_inflight_requests",
				Help: "Number of HTTP requests currently being served",
			},
		),
		statusEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_status_events_total",
				Help: "Carrier status events by reconciliation outcome",
			},
			[]string{"outcome"},
		),
		callsPlaced: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calls_placed_total",
				Help: "Outbound call attempts by result",
			},
			[]string{"result"},
		),
		verifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phone_verifications_total",
				Help: "Verification steps by step and result",
			},
			[]string{"step", "result"},
		),
		instructions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_control_instructions_total",
				Help: "Call-control responses by webhook and verb",
			},
			[]string{"webhook", "verb"},
		),
	}
}

// Middleware records request counts and latencies. Labels use the matched
// route template to keep cardinality low.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		m.httpRequestsTotal.With(labels).Inc()
		m.httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) StatusEvent(outcome string) {
	m.statusEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CallPlaced(err error) {
	m.callsPlaced.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) Verification(step string, err error) {
	m.verifications.WithLabelValues(step, result(err)).Inc()
}

func (m *Metrics) Instruction(webhook, verb string) {
	m.instructions.WithLabelValues(webhook, verb).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
