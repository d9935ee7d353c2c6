package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and dispatch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	unitsSentTotal       prometheus.Counter
	unitsFailedTotal     *prometheus.CounterVec
	unitsDeliveredTotal  prometheus.Counter
	submitDuration       prometheus.Histogram
	batchesActive        prometheus.Gauge
	batchesStartedTotal  prometheus.Counter
	receiptsDroppedTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smscast",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		unitsSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "units_sent_total",
				Help:      "Total number of message units confirmed sent, including timeout fallbacks.",
			},
		),
		unitsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "units_failed_total",
				Help:      "Total number of message units that ended in failed state.",
			},
			[]string{"reason"},
		),
		unitsDeliveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "units_delivered_total",
				Help:      "Total number of message units with a positive delivery receipt.",
			},
		),
		submitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "smscast",
				Name:      "submit_duration_seconds",
				Help:      "Gateway submit duration in seconds per message unit.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		batchesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "smscast",
				Name:      "batches_active",
				Help:      "Current number of batches with units still in flight.",
			},
		),
		batchesStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "batches_started_total",
				Help:      "Total number of dispatch batches accepted.",
			},
		),
		receiptsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smscast",
				Name:      "receipts_dropped_total",
				Help:      "Total number of status receipts that matched no tracked unit.",
			},
			[]string{"event"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.unitsSentTotal,
		m.unitsFailedTotal,
		m.unitsDeliveredTotal,
		m.submitDuration,
		m.batchesActive,
		m.batchesStartedTotal,
		m.receiptsDroppedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncUnitSent() {
	if m == nil {
		return
	}
	m.unitsSentTotal.Inc()
}

func (m *Metrics) IncUnitFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.unitsFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) IncUnitDelivered() {
	if m == nil {
		return
	}
	m.unitsDeliveredTotal.Inc()
}

func (m *Metrics) ObserveSubmitDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.submitDuration.Observe(seconds)
}

func (m *Metrics) IncBatchActive() {
	if m == nil {
		return
	}
	m.batchesActive.Inc()
}

func (m *Metrics) DecBatchActive() {
	if m == nil {
		return
	}
	m.batchesActive.Dec()
}

func (m *Metrics) IncBatchStarted() {
	if m == nil {
		return
	}
	m.batchesStartedTotal.Inc()
}

func (m *Metrics) IncReceiptDropped(event string) {
	if m == nil {
		return
	}
	eventLabel := strings.TrimSpace(strings.ToLower(event))
	if eventLabel == "" {
		eventLabel = "unknown"
	}
	m.receiptsDroppedTotal.WithLabelValues(eventLabel).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
