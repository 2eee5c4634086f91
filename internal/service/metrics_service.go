package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	selectionOps    *prometheus.CounterVec
	selectionSize   prometheus.Histogram
	exportJobs      *prometheus.CounterVec
	sessionEnds     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "list_cache_lookups_total",
		Help: "List collection cache lookups by result",
	}, []string{"result"})

	selectionOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_selection_operations_total",
		Help: "Enrollment selection operations by action and outcome",
	}, []string{"action", "outcome"})

	selectionSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "enrollment_selection_size",
		Help:    "Selection size after each selection operation",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_export_jobs_total",
		Help: "Report export jobs by type and final status",
	}, []string{"type", "status"})

	sessionEnds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_invalidations_total",
		Help: "Session invalidations by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups, selectionOps, selectionSize, exportJobs, sessionEnds, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		selectionOps:    selectionOps,
		selectionSize:   selectionSize,
		exportJobs:      exportJobs,
		sessionEnds:     sessionEnds,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup and its latency.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite records cache set latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSelection counts a selection operation. outcome is "applied",
// "rejected" or "error".
func (m *MetricsService) RecordSelection(action, outcome string, size int) {
	if m == nil {
		return
	}
	m.selectionOps.WithLabelValues(action, outcome).Inc()
	if outcome != "error" {
		m.selectionSize.Observe(float64(size))
	}
}

// RecordExportJob counts an export job reaching a final status.
func (m *MetricsService) RecordExportJob(reportType, status string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(reportType, status).Inc()
}

// RecordSessionInvalidation counts a session invalidation.
func (m *MetricsService) RecordSessionInvalidation(reason string) {
	if m == nil {
		return
	}
	m.sessionEnds.WithLabelValues(reason).Inc()
}
