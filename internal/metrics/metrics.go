// Package metrics exposes Prometheus metrics for the HTTP surface and for
// radar monitoring cycles.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radar"

// Fetch outcomes recorded per source.
const (
	FetchOK        = "ok"
	FetchFailed    = "failed"
	FetchAbandoned = "abandoned"
)

// Collector owns a private registry with HTTP and cycle metrics.
type Collector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	fetchTotal    *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	fallbackTotal *prometheus.CounterVec
	cachedSources prometheus.Gauge
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Monitoring cycles by trigger and status.",
		}, []string{"trigger", "status"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of monitoring cycles.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Source fetches by outcome.",
		}, []string{"source", "outcome"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "alerts_total",
			Help:      "Alerts emitted by severity.",
		}, []string{"severity"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "fallbacks_total",
			Help:      "Collaborator failures that fell back to deterministic behaviour.",
		}, []string{"collaborator"}),
		cachedSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "sources",
			Help:      "Sources with a cached version.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.requestDuration,
		c.requestTotal,
		c.cyclesTotal,
		c.cycleDuration,
		c.fetchTotal,
		c.alertsTotal,
		c.fallbackTotal,
		c.cachedSources,
		collectors.NewGoCollector(),
	} {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveCycle records a finished cycle.
func (c *Collector) ObserveCycle(trigger, status string, duration time.Duration) {
	c.cyclesTotal.WithLabelValues(trigger, status).Inc()
	c.cycleDuration.Observe(duration.Seconds())
}

// ObserveFetch records the outcome of one source fetch.
func (c *Collector) ObserveFetch(source, outcome string) {
	c.fetchTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveAlerts adds n alerts of the given severity.
func (c *Collector) ObserveAlerts(severity string, n int) {
	if n > 0 {
		c.alertsTotal.WithLabelValues(severity).Add(float64(n))
	}
}

// ObserveFallback records a collaborator failure.
func (c *Collector) ObserveFallback(collaborator string) {
	c.fallbackTotal.WithLabelValues(collaborator).Inc()
}

// SetCachedSources reports the number of cached version slots.
func (c *Collector) SetCachedSources(n int) {
	c.cachedSources.Set(float64(n))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
