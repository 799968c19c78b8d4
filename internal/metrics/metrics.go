package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's Prometheus collectors. An explicit instance
// rather than the global default registry so tests can build isolated
// copies.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RecordsProcessed *prometheus.CounterVec
	RecordsSaved     *prometheus.CounterVec
	DownloadDuration *prometheus.HistogramVec
	RateLimited      *prometheus.CounterVec
	AlertsActive     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vg_ingest_runs_total",
		Help: "Source download runs by outcome",
	}, []string{"source", "status"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vg_ingest_records_processed_total",
		Help: "Raw records extracted per source",
	}, []string{"source"})
	saved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vg_ingest_records_saved_total",
		Help: "Vendor profiles created per source",
	}, []string{"source"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vg_ingest_download_duration_seconds",
		Help:    "End-to-end source run duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	rateLimited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vg_ingest_rate_limited_total",
		Help: "Downloads aborted by the per-source rate limiter",
	}, []string{"source"})
	alertsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vg_monitor_alerts_active",
		Help: "Unresolved monitoring alerts",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vg_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vg_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(runs, processed, saved, duration, rateLimited, alertsActive, httpRequests, httpDuration)
	return &Registry{
		reg:              r,
		RunsTotal:        runs,
		RecordsProcessed: processed,
		RecordsSaved:     saved,
		DownloadDuration: duration,
		RateLimited:      rateLimited,
		AlertsActive:     alertsActive,
		httpRequests:     httpRequests,
		httpDuration:     httpDuration,
	}
}

// Handler serves the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations per chi route pattern.
// Route patterns keep label cardinality bounded; raw paths would not.
func (r *Registry) Middleware(routePattern func(req *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, req)

			route := routePattern(req)
			if route == "" {
				route = "unmatched"
			}
			r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(wrapped.status)).Inc()
			r.httpDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
