package startup

import (
	"context"
	"fmt"
	"time"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/catalog/memory"
	"movies-db/internal/catalog/postgres"
	"movies-db/internal/catalog/sqlite"
	"movies-db/internal/logging"
	"movies-db/internal/metrics"
)

// Backend is an opened catalog index together with the hooks main needs
// for metrics and shutdown.
type Backend struct {
	// Index is the index handlers and the pipeline use. It is wrapped in
	// the entry cache when one is configured.
	Index catalog.Index

	// DBPath is the SQLite database file, empty for other backends.
	DBPath string

	name        string
	raw         catalog.Index
	dbMetricsFn func()
}

// OpenBackend opens the catalog backend selected by cfg.
func OpenBackend(ctx context.Context, cfg *Config) (*Backend, error) {
	start := time.Now()
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CATALOG INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	b := &Backend{name: cfg.Backend}

	switch cfg.Backend {
	case BackendMemory:
		logging.Warn("  In-memory catalog: entries are lost on restart")
		b.raw = memory.New()
	case BackendSQLite:
		if err := ensureDirectory(cfg.RootDir, "root"); err != nil {
			return nil, fmt.Errorf("root directory error: %w", err)
		}
		if err := testWriteAccess(cfg.RootDir); err != nil {
			return nil, fmt.Errorf("root directory is not writable (required for database): %w", err)
		}
		ix, err := sqlite.New(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		b.raw = ix
		b.DBPath = ix.Path()
		b.dbMetricsFn = ix.UpdateDBMetrics
	case BackendPostgres:
		ix, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.raw = ix
		b.dbMetricsFn = ix.UpdateDBMetrics
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	b.Index = b.raw
	if cfg.Cache.Size > 0 {
		b.Index = catalog.NewCachedIndex(b.raw, cfg.Cache.Size, cfg.Cache.TTL)
		logging.Info("  Entry cache: %d entries, ttl %v", cfg.Cache.Size, cfg.Cache.TTL)
	} else {
		logging.Info("  Entry cache: DISABLED")
	}

	logging.Info("  [OK] %s catalog ready in %v", b.name, time.Since(start).Round(time.Millisecond))
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// UpdateDBMetrics refreshes connection gauges of database backends.
func (b *Backend) UpdateDBMetrics() {
	if b.dbMetricsFn != nil {
		b.dbMetricsFn()
	}
}

// Close releases the backend.
func (b *Backend) Close() error {
	return b.raw.Close()
}

// OpenStore creates the filesystem blob store under cfg.StoreDir.
func OpenStore(cfg *Config) (*blobstore.FileStore, error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BLOB STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(cfg.StoreDir, "store"); err != nil {
		return nil, fmt.Errorf("store directory error: %w", err)
	}
	if err := testWriteAccess(cfg.StoreDir); err != nil {
		return nil, fmt.Errorf("store directory is not writable: %w", err)
	}

	store, err := blobstore.NewFileStore(cfg.StoreDir, metrics.NewBlobObserver())
	if err != nil {
		return nil, err
	}
	logging.Info("  [OK] Blob store at %s", store.Root())
	return store, nil
}
