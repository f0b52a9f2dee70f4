// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] merges, in increasing priority order, built-in defaults
// ([DefaultConfig]), an optional YAML file and environment variables, then
// validates the result. [FindConfigFile] locates the file when no -config
// flag is given.
//
// Example file (movies-db.yaml):
//
//	port: "8080"
//	metrics_port: "9090"
//	root_dir: /var/lib/movies-db
//	backend: sqlite            # memory | sqlite | postgres
//	postgres_dsn: postgres://movies:secret@db:5432/movies?sslmode=disable
//	ffmpeg_dir: /usr/bin
//	log_level: info
//	preview:
//	  max_width: 640
//	cache:
//	  size: 1024
//	  ttl: 5m
//
// Environment overrides:
//
//   - PORT, METRICS_PORT, METRICS_ENABLED, METRICS_INTERVAL
//   - ROOT_DIR: blob store and SQLite database location (default: ./data)
//   - BACKEND: memory, sqlite or postgres (default: sqlite)
//   - POSTGRES_DSN: URL-form DSN, required for the postgres backend
//   - FFMPEG_DIR: directory of ffmpeg and ffprobe (default: PATH lookup)
//   - PREVIEW_MAX_WIDTH: preview size bound, 0 disables scaling
//   - CACHE_SIZE, CACHE_TTL: entry cache, size 0 disables it
//   - LOG_LEVEL, LOG_HEALTH_CHECKS, SHUTDOWN_TIMEOUT
//   - MOVIES_DB_CONFIG: config file path
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle
//
// [OpenBackend] and [OpenStore] construct the catalog index and blob store
// described by a Config. The Log* functions write the sectioned startup and
// shutdown log.
package startup
