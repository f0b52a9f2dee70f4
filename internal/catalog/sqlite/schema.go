package sqlite

import (
	"context"
	"fmt"

	"movies-db/internal/logging"
)

// migrations are applied in order; the database's user_version records
// how many have run. Never edit a released entry, append a new one.
var migrations = []string{
	// 1: base schema
	`
	CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title, id);
	CREATE INDEX IF NOT EXISTS idx_movies_created_at ON movies(created_at, id);

	CREATE TABLE IF NOT EXISTS movie_tags (
		movie_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (movie_id, tag),
		FOREIGN KEY (movie_id) REFERENCES movies(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_movie_tags_tag ON movie_tags(tag);
	`,
	// 2: file info columns for the media file and the generated preview
	`
	ALTER TABLE movies ADD COLUMN media_extension TEXT;
	ALTER TABLE movies ADD COLUMN media_mime_type TEXT;
	ALTER TABLE movies ADD COLUMN preview_extension TEXT;
	ALTER TABLE movies ADD COLUMN preview_mime_type TEXT;

	CREATE INDEX IF NOT EXISTS idx_movies_pending_preview
		ON movies(media_extension, preview_extension);
	`,
}

func (ix *Index) initialize(ctx context.Context) error {
	var version int
	if err := ix.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		next := i + 1
		logging.Info("Migrating database: applying schema version %d", next)

		tx, err := ix.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", next, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", next, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", next)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record schema version %d: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", next, err)
		}
	}

	if version < len(migrations) {
		logging.Info("Migration complete: schema at version %d", len(migrations))
	}
	return nil
}
