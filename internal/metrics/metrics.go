package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsoplan_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dsoplan_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// ObjectEvaluations counts per-object evaluations by outcome
	// (ok, not_found, empty_window, timeout, error).
	ObjectEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsoplan_object_evaluations_total",
			Help: "Total number of object evaluations by outcome.",
		},
		[]string{"outcome"},
	)

	// RunDuration observes the wall time of whole catalogue runs.
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dsoplan_catalogue_run_duration_seconds",
			Help:    "Duration of catalogue evaluation runs in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// ResolverLookups counts name resolutions by the source that answered.
	ResolverLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dsoplan_resolver_lookups_total",
			Help: "Total number of name resolutions by source.",
		},
		[]string{"source"},
	)

	// CachedCatalogues reports how many dated catalogues are held in memory.
	CachedCatalogues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsoplan_cached_catalogues",
			Help: "Number of dated catalogues held in memory.",
		},
	)

	// StreamConnections reports open progress streams.
	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dsoplan_stream_connections",
			Help: "Number of open progress event streams.",
		},
	)

	// StreamMessages counts progress events written to clients.
	StreamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dsoplan_stream_messages_total",
			Help: "Total number of progress events sent.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		ObjectEvaluations,
		RunDuration,
		ResolverLookups,
		CachedCatalogues,
		StreamConnections,
		StreamMessages,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

var exactRoutes = map[string]bool{
	"/":        true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// normalizeRoute maps a request path to a bounded set of route labels so
// dates, object names and query segments cannot blow up label cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	if !strings.HasPrefix(path, "/api/v1/") {
		return "other"
	}

	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	switch {
	case parts[0] == "catalogue" && len(parts) == 2:
		return "/api/v1/catalogue/{date}"
	case parts[0] == "catalogue" && len(parts) == 3 && parts[2] == "events":
		return "/api/v1/catalogue/{date}/events"
	case parts[0] == "catalogue" && len(parts) == 5 && parts[2] == "best":
		return "/api/v1/catalogue/{date}/best/{direction}/{min_altitude}"
	case parts[0] == "tonight" && len(parts) == 4 && parts[1] == "best":
		return "/api/v1/tonight/best/{direction}/{min_altitude}"
	case parts[0] == "objects" && len(parts) == 2:
		return "/api/v1/objects/{name}"
	case parts[0] == "night" && len(parts) == 2:
		return "/api/v1/night/{date}"
	case parts[0] == "cache" && len(parts) == 2 && parts[1] == "stats":
		return "/api/v1/cache/stats"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the underlying writer so event streams work
// behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
