// Package metrics provides Prometheus instrumentation for movies-db.
//
// All metrics are prefixed with "movies_db_" to avoid naming collisions
// with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
// Track HTTP request performance and error rates:
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Database Metrics
//
// Recorded by the sqlite and postgres catalog backends:
//   - DBQueryTotal: Counter of queries by backend, operation, and status
//   - DBQueryDuration: Histogram of query duration by backend and operation
//   - DBConnectionsOpen: Gauge of open connections by backend
//   - DBSizeBytes: Gauge of SQLite file sizes (main, WAL, SHM)
//
// ## Catalog Metrics
//
// Refreshed periodically by the Collector:
//   - CatalogEntriesTotal, CatalogEntriesWithMedia, CatalogEntriesPendingPreview
//   - CatalogTagsTotal
//   - CatalogCacheHits / CatalogCacheMisses: entry cache effectiveness
//
// ## Preview Metrics
//
// Recorded by the preview pipeline:
//   - PreviewJobsTotal: Counter of jobs by outcome (success or the failing step)
//   - PreviewJobDuration: Histogram of job duration
//   - PreviewQueueDepth: Gauge of jobs waiting
//   - PreviewWorkerRunning: Gauge, 1 while a job is in flight
//   - PreviewReconciledTotal: Counter of jobs enqueued at startup
//   - PreviewFFmpegDuration: Histogram of ffprobe/ffmpeg run time
//
// ## Blob Store Metrics
//
// Recorded through BlobObserver:
//   - BlobOperationDuration / BlobOperationErrors by operation
//   - BlobBytesWritten by blob kind
//
// ## Filesystem Retry Metrics
//
// FilesystemStaleErrors, FilesystemRetryAttempts and FilesystemRetryFailures
// count stale file handle retries by operation ("stat", "open").
//
// ## Memory Metrics
//
// Recorded by the memory monitor when a memory limit is configured:
//   - MemoryUsageRatio: heap allocation relative to the limit
//   - MemoryPaused / MemoryGCPauses: preview backpressure state and count
//
// # Usage
//
// Metrics are served by promhttp on a dedicated port (METRICS_PORT,
// default 9090) when METRICS_ENABLED is true. Call InitializeMetrics at
// startup so every label combination is exported from the first scrape.
package metrics
