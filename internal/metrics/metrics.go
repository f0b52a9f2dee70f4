package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_db_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics, shared by the sqlite and postgres backends
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_db_queries_total",
			Help: "Total number of catalog database queries",
		},
		[]string{"backend", "operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_db_db_query_duration_seconds",
			Help:    "Catalog database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "operation"},
	)

	DBConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movies_db_db_connections_open",
			Help: "Number of open database connections",
		},
		[]string{"backend"},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movies_db_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Catalog metrics
var (
	CatalogEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_catalog_entries_total",
			Help: "Number of catalog entries",
		},
	)

	CatalogEntriesWithMedia = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_catalog_entries_with_media",
			Help: "Number of catalog entries with an uploaded media file",
		},
	)

	CatalogEntriesPendingPreview = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_catalog_entries_pending_preview",
			Help: "Number of catalog entries with media but no preview",
		},
	)

	CatalogTagsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_catalog_tags_total",
			Help: "Number of distinct tags",
		},
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_db_catalog_cache_hits_total",
			Help: "Total number of entry cache hits",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_db_catalog_cache_misses_total",
			Help: "Total number of entry cache misses",
		},
	)
)

// Preview pipeline metrics
var (
	PreviewJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_preview_jobs_total",
			Help: "Total number of preview jobs by outcome",
		},
		[]string{"status"},
	)

	PreviewJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movies_db_preview_job_duration_seconds",
			Help:    "Preview job duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	PreviewQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_preview_queue_depth",
			Help: "Number of preview jobs waiting in the queue",
		},
	)

	PreviewWorkerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_preview_worker_running",
			Help: "Whether the preview worker is processing a job (1 = busy, 0 = idle)",
		},
	)

	PreviewReconciledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_db_preview_reconciled_jobs_total",
			Help: "Total number of preview jobs enqueued by reconciliation",
		},
	)

	PreviewFFmpegDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_db_preview_ffmpeg_duration_seconds",
			Help:    "Duration of ffprobe and ffmpeg invocations in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command"},
	)
)

// Blob store metrics
var (
	BlobOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_db_blob_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	BlobOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_blob_operation_errors_total",
			Help: "Total number of failed blob store operations",
		},
		[]string{"operation"},
	)

	BlobBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_blob_bytes_written_total",
			Help: "Total bytes written to the blob store",
		},
		[]string{"kind"},
	)
)

// Filesystem retry metrics. Blob roots on NFS can return stale file
// handles that succeed on a later attempt.
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_db_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movies_db_memory_paused",
			Help: "Whether preview generation is paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_db_memory_gc_pauses_total",
			Help: "Total number of times preview generation was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movies_db_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "backend"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, backend string) {
	AppInfo.WithLabelValues(version, commit, goVersion, backend).Set(1)
}
