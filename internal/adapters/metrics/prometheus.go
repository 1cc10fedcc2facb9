// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus. Every
// collector owns its registry.
type Collector struct {
	registry *prometheus.Registry

	primitivesCreated *prometheus.CounterVec
	primitivesRemoved *prometheus.CounterVec
	trackedResults    prometheus.Gauge
	clusters          prometheus.Gauge
	recomputeDuration prometheus.Histogram
	layerFailures     *prometheus.CounterVec
	mapEvents         *prometheus.CounterVec
	resultLoads       *prometheus.CounterVec

	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "atlas"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		primitivesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "primitives_created_total",
				Help:      "Total number of engine primitives created",
			},
			[]string{"kind"},
		),

		primitivesRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "primitives_removed_total",
				Help:      "Total number of engine primitives removed",
			},
			[]string{"kind"},
		),

		trackedResults: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_results",
				Help:      "Number of results rendered individually",
			},
		),

		clusters: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "clusters",
				Help:      "Number of rendered clusters",
			},
		),

		recomputeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cluster_recompute_duration_seconds",
				Help:      "Cluster recompute duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),

		layerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layer_init_failures_total",
				Help:      "Total number of imagery layers that failed to initialize",
			},
			[]string{"type"},
		),

		mapEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "map_events_total",
				Help:      "Total number of pointer events received from the engine",
			},
			[]string{"kind"},
		),

		resultLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "result_loads_total",
				Help:      "Total number of result source loads",
			},
			[]string{"source", "status"},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// IncPrimitivesCreated implements MetricsCollector.
func (c *Collector) IncPrimitivesCreated(kind string) {
	c.primitivesCreated.WithLabelValues(kind).Inc()
}

// IncPrimitivesRemoved implements MetricsCollector.
func (c *Collector) IncPrimitivesRemoved(kind string) {
	c.primitivesRemoved.WithLabelValues(kind).Inc()
}

// SetTrackedResults implements MetricsCollector.
func (c *Collector) SetTrackedResults(count int) {
	c.trackedResults.Set(float64(count))
}

// SetClusters implements MetricsCollector.
func (c *Collector) SetClusters(count int) {
	c.clusters.Set(float64(count))
}

// ObserveRecomputeDuration implements MetricsCollector.
func (c *Collector) ObserveRecomputeDuration(duration time.Duration) {
	c.recomputeDuration.Observe(duration.Seconds())
}

// IncLayerInitFailures implements MetricsCollector.
func (c *Collector) IncLayerInitFailures(layerType string) {
	c.layerFailures.WithLabelValues(layerType).Inc()
}

// IncMapEvents implements MetricsCollector.
func (c *Collector) IncMapEvents(kind string) {
	c.mapEvents.WithLabelValues(kind).Inc()
}

// IncResultLoads implements MetricsCollector.
func (c *Collector) IncResultLoads(source string, success bool) {
	c.resultLoads.WithLabelValues(source, statusLabel(success)).Inc()
}

// IncStorageOperations implements MetricsCollector.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration implements MetricsCollector.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exposing this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records request counts and durations labelled by route template.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routeTemplate(r)
		c.httpRequestsTotal.WithLabelValues(r.Method, path, statusToString(wrapped.statusCode)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routeTemplate returns the matched mux route template, keeping path
// parameters out of the label set.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
