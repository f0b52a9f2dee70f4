// Command movies-db is the movie catalog server.
//
// It stores movie metadata in a catalog index, media files and preview
// images in a blob store, and generates previews from uploaded media in
// a background worker.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT / MEMORY_RATIO
//  2. Configuration: -config flag, MOVIES_DB_CONFIG, ./movies-db.yaml or
//     ~/.config/movies-db/config.yaml, then environment overrides
//  3. Catalog: memory, sqlite or postgres backend, optionally behind the
//     entry cache
//  4. Blob store under <root_dir>/movies
//  5. ffmpeg/ffprobe check (a missing binary is a warning; previews then
//     fail per job)
//  6. Preview worker: reconciles entries with media but no preview, then
//     consumes upload jobs; paused by the memory monitor under pressure
//  7. HTTP servers: API on PORT, Prometheus on METRICS_PORT
//  8. Graceful shutdown on SIGINT/SIGTERM
//
// # HTTP Server
//
// The main server (default port 8080) serves the movie API under /api/v1
// and the health endpoints /health, /healthz, /livez, /readyz and
// /version. Requests pass through request id, access log, compression
// and metrics middleware.
//
// The metrics server (default port 9090) serves /metrics when
// METRICS_ENABLED is true.
//
// # Graceful Shutdown
//
//  1. Stop accepting HTTP requests (SHUTDOWN_TIMEOUT, default 30s)
//  2. Stop the metrics server and collector
//  3. Close the preview queue and let the worker finish; after the
//     timeout the worker is cancelled and leftovers are reconciled on the
//     next start
//  4. Stop the memory monitor and close the catalog
//
// # Build Requirements
//
// The sqlite backend needs CGO (mattn/go-sqlite3). ffmpeg and ffprobe
// must be on PATH or in FFMPEG_DIR for preview generation.
//
//	go build -ldflags "-X movies-db/internal/startup.Version=1.0.0" -o movies-db .
//
// # Related Packages
//
//   - [movies-db/internal/catalog]: data model and index backends
//   - [movies-db/internal/blobstore]: media and preview storage
//   - [movies-db/internal/preview]: preview generation worker
//   - [movies-db/internal/handlers]: HTTP API
//   - [movies-db/internal/startup]: configuration and initialization
package main
