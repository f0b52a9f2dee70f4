package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"movies-db/internal/metrics"
)

// metricsResponseWriter captures the status code and, for download
// routes, the time the first byte left.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode     int
	headerWritten  bool
	startTime      time.Time
	firstByteTime  time.Time
	isDownloadPath bool
}

func newMetricsResponseWriter(w http.ResponseWriter, startTime time.Time, isDownload bool) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		startTime:      startTime,
		isDownloadPath: isDownload,
	}
}

func (rw *metricsResponseWriter) markHeader() {
	if rw.headerWritten {
		return
	}
	rw.headerWritten = true
	if rw.isDownloadPath {
		rw.firstByteTime = time.Now()
	}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
	}
	rw.markHeader()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	rw.markHeader()
	return rw.ResponseWriter.Write(b)
}

func (rw *metricsResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GetDuration returns the time to first byte for downloads, whose total
// duration depends on the client, and the total duration otherwise.
func (rw *metricsResponseWriter) GetDuration() time.Duration {
	if rw.isDownloadPath && !rw.firstByteTime.IsZero() {
		return rw.firstByteTime.Sub(rw.startTime)
	}
	return time.Since(rw.startTime)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// isDownloadPath reports whether path streams a blob to the client.
func isDownloadPath(method, path string) bool {
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return path == "/api/v1/movie/file" || path == "/api/v1/movie/preview/file"
}

// Metrics returns a middleware that records Prometheus metrics. Installed
// with Router.Use it labels requests by route template.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w, time.Now(), isDownloadPath(r.Method, r.URL.Path))
			next.ServeHTTP(wrapped, r)

			path := routeLabel(r)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(wrapped.GetDuration().Seconds())
		})
	}
}

// routeLabel prefers the matched route template and falls back to a
// truncated path.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath keeps the first four segments and collapses the rest
// into {path} to bound label cardinality.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i > 4 {
			parts[i] = "{path}"
			return strings.Join(parts[:i+1], "/")
		}
	}
	return path
}
