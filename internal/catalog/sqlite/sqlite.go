package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

const backendName = "sqlite"

// Index is a catalog.Index stored in a single SQLite file.
type Index struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

var _ catalog.Index = (*Index)(nil)

// New opens (creating if needed) the catalog database at dbPath.
// The parent directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Index, error) {
	logging.Info("Database path: %s", dbPath)

	// Diagnose potential permission issues
	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// WAL lets readers proceed while the single writer commits.
	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ix := &Index{
		db:     db,
		dbPath: dbPath,
	}

	if err := ix.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return ix, nil
}

// Path returns the database file path.
func (ix *Index) Path() string {
	return ix.dbPath
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Ping checks that the database still answers.
func (ix *Index) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return ix.db.PingContext(ctx)
}

// UpdateDBMetrics updates database connection metrics
func (ix *Index) UpdateDBMetrics() {
	stats := ix.db.Stats()
	metrics.DBConnectionsOpen.WithLabelValues(backendName).Set(float64(stats.OpenConnections))
}

// observeQuery starts timing operation and returns the function that
// records its outcome.
func observeQuery(operation string) func(err error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}

// recordQuery records database query metrics. Caller errors such as an
// unknown id count as successful queries.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && errors.Is(err, catalog.ErrInternal) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(backendName, operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(backendName, operation).Observe(duration)
}

// withTx runs fn in a transaction and commits it when fn returns nil.
func (ix *Index) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Internal(op+": begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Error("rollback failed: %v", rbErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return catalog.Internal(op+": commit", err)
	}
	committed = true
	return nil
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile) // Explicitly ignore cleanup error
	logging.Debug("Database directory is writable")

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file %s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions of %s: %v", path, chmodErr)
			} else {
				logging.Info("Fixed permissions of %s", path)
			}
		}
	}

	return nil
}
