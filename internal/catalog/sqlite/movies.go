package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"movies-db/internal/catalog"
	"movies-db/internal/logging"
)

// AddMovie inserts the movie and its tags in one transaction.
func (ix *Index) AddMovie(ctx context.Context, movie catalog.Movie) (catalog.ID, error) {
	done := observeQuery("add_movie")

	movie, err := catalog.NormalizeMovie(movie)
	if err != nil {
		done(err)
		return "", err
	}
	id := catalog.NewID()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = ix.withTx(ctx, "add movie", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO movies (id, title, description, created_at) VALUES (?, ?, ?, ?)",
			string(id), movie.Title, movie.Description, catalog.Now().UnixMicro(),
		)
		if err != nil {
			return catalog.Internal("insert movie", err)
		}
		return insertTags(ctx, tx, id, movie.Tags)
	})
	done(err)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (ix *Index) GetMovie(ctx context.Context, id catalog.ID) (catalog.Entry, error) {
	done := observeQuery("get_movie")

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		entry                   catalog.Entry
		createdAt               int64
		mediaExt, mediaMime     sql.NullString
		previewExt, previewMime sql.NullString
	)
	err := ix.db.QueryRowContext(ctx, `
		SELECT title, description, created_at,
			media_extension, media_mime_type, preview_extension, preview_mime_type
		FROM movies WHERE id = ?
	`, string(id)).Scan(
		&entry.Movie.Title, &entry.Movie.Description, &createdAt,
		&mediaExt, &mediaMime, &previewExt, &previewMime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = catalog.NotFound(id)
		done(err)
		return catalog.Entry{}, err
	}
	if err != nil {
		err = catalog.Internal("get movie", err)
		done(err)
		return catalog.Entry{}, err
	}

	entry.CreatedAt = time.UnixMicro(createdAt).UTC()
	entry.MediaInfo = fileInfo(mediaExt, mediaMime)
	entry.PreviewInfo = fileInfo(previewExt, previewMime)

	entry.Movie.Tags, err = ix.movieTags(ctx, id)
	done(err)
	if err != nil {
		return catalog.Entry{}, err
	}
	return entry, nil
}

func (ix *Index) RemoveMovie(ctx context.Context, id catalog.ID) error {
	done := observeQuery("remove_movie")

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := ix.withTx(ctx, "remove movie", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM movie_tags WHERE movie_id = ?", string(id)); err != nil {
			return catalog.Internal("delete tags", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id = ?", string(id))
		return checkAffected(id, "delete movie", result, err)
	})
	done(err)
	return err
}

func (ix *Index) ChangeTitle(ctx context.Context, id catalog.ID, title string) error {
	if err := catalog.ValidateTitle(title); err != nil {
		return err
	}
	return ix.updateColumns(ctx, "change_title", id, "title = ?", title)
}

func (ix *Index) ChangeDescription(ctx context.Context, id catalog.ID, description string) error {
	return ix.updateColumns(ctx, "change_description", id, "description = ?", description)
}

func (ix *Index) UpdateMediaFileInfo(ctx context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.updateColumns(ctx, "update_media_info", id,
		"media_extension = ?, media_mime_type = ?", info.Extension, info.MimeType)
}

func (ix *Index) UpdatePreviewFileInfo(ctx context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.updateColumns(ctx, "update_preview_info", id,
		"preview_extension = ?, preview_mime_type = ?", info.Extension, info.MimeType)
}

// ChangeTags replaces the tag set of a movie.
func (ix *Index) ChangeTags(ctx context.Context, id catalog.ID, tags []string) error {
	done := observeQuery("change_tags")
	tags = catalog.NormalizeTags(tags)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := ix.withTx(ctx, "change tags", func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM movies WHERE id = ?)", string(id)).Scan(&exists)
		if err != nil {
			return catalog.Internal("check movie", err)
		}
		if !exists {
			return catalog.NotFound(id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM movie_tags WHERE movie_id = ?", string(id)); err != nil {
			return catalog.Internal("delete tags", err)
		}
		return insertTags(ctx, tx, id, tags)
	})
	done(err)
	return err
}

// SearchMovies runs the whole search in one statement. Title filtering
// uses GLOB, which shares '*' and '?' with catalog.MatchGlob; '[' is
// escaped so it stays literal.
func (ix *Index) SearchMovies(ctx context.Context, query catalog.SearchQuery) ([]catalog.ID, error) {
	done := observeQuery("search_movies")

	query, err := query.Normalize()
	if err != nil {
		done(err)
		return nil, err
	}

	var (
		sb    strings.Builder
		args  []interface{}
		where []string
	)
	sb.WriteString("SELECT m.id FROM movies m")

	if query.TitlePattern != nil {
		where = append(where, "m.title GLOB ?")
		args = append(args, escapeGlob(*query.TitlePattern))
	}
	if len(query.Tags) > 0 {
		where = append(where, "(SELECT COUNT(*) FROM movie_tags t WHERE t.movie_id = m.id AND t.tag IN ("+
			placeholders(len(query.Tags))+")) = ?")
		for _, tag := range query.Tags {
			args = append(args, tag)
		}
		args = append(args, len(query.Tags))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	dir := "DESC"
	if query.SortOrder == catalog.Ascending {
		dir = "ASC"
	}
	column := "m.created_at"
	if query.SortField == catalog.SortByTitle {
		column = "m.title"
	}
	sb.WriteString(" ORDER BY " + column + " " + dir + ", m.id " + dir)

	// SQLite needs a LIMIT before OFFSET; -1 means unbounded.
	limit := -1
	if query.Limit != nil {
		limit = *query.Limit
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, query.OffsetValue())

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		err = catalog.Internal("search movies", err)
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	ids := make([]catalog.ID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			err = catalog.Internal("scan search result", err)
			done(err)
			return nil, err
		}
		ids = append(ids, catalog.ID(id))
	}
	if err := rows.Err(); err != nil {
		err = catalog.Internal("iterate search results", err)
		done(err)
		return nil, err
	}

	done(nil)
	return ids, nil
}

func (ix *Index) GetTagCounts(ctx context.Context) ([]catalog.TagCount, error) {
	done := observeQuery("get_tag_counts")

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := ix.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) AS n
		FROM movie_tags
		GROUP BY tag
		ORDER BY n DESC, tag ASC
	`)
	if err != nil {
		err = catalog.Internal("get tag counts", err)
		done(err)
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	counts := make([]catalog.TagCount, 0)
	for rows.Next() {
		var tc catalog.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			err = catalog.Internal("scan tag count", err)
			done(err)
			return nil, err
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		err = catalog.Internal("iterate tag counts", err)
		done(err)
		return nil, err
	}

	done(nil)
	return counts, nil
}

// Counts implements catalog.Counter with aggregate queries.
func (ix *Index) Counts(ctx context.Context) (catalog.Counts, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c catalog.Counts
	err := ix.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN media_extension IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN media_extension IS NOT NULL AND preview_extension IS NULL THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(DISTINCT tag) FROM movie_tags)
		FROM movies
	`).Scan(&c.Entries, &c.WithMedia, &c.PendingPreview, &c.Tags)
	if err != nil {
		return catalog.Counts{}, catalog.Internal("count entries", err)
	}
	return c, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (ix *Index) updateColumns(ctx context.Context, op string, id catalog.ID, set string, values ...interface{}) error {
	done := observeQuery(op)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := append(values, string(id))
	result, err := ix.db.ExecContext(ctx, "UPDATE movies SET "+set+" WHERE id = ?", args...)
	err = checkAffected(id, op, result, err)
	done(err)
	return err
}

func (ix *Index) movieTags(ctx context.Context, id catalog.ID) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT tag FROM movie_tags WHERE movie_id = ? ORDER BY tag", string(id))
	if err != nil {
		return nil, catalog.Internal("get tags", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("error closing rows: %v", err)
		}
	}()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, catalog.Internal("scan tag", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.Internal("iterate tags", err)
	}
	return tags, nil
}

func insertTags(ctx context.Context, tx *sql.Tx, id catalog.ID, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO movie_tags (movie_id, tag) VALUES (?, ?)",
			string(id), tag,
		); err != nil {
			return catalog.Internal("insert tag", err)
		}
	}
	return nil
}

func checkAffected(id catalog.ID, op string, result sql.Result, err error) error {
	if err != nil {
		return catalog.Internal(op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return catalog.Internal(op, err)
	}
	if n == 0 {
		return catalog.NotFound(id)
	}
	return nil
}

func fileInfo(ext, mime sql.NullString) *catalog.FileInfo {
	if !ext.Valid {
		return nil
	}
	return &catalog.FileInfo{Extension: ext.String, MimeType: mime.String}
}

// escapeGlob makes '[' literal so only '*' and '?' remain special.
func escapeGlob(pattern string) string {
	return strings.ReplaceAll(pattern, "[", "[[]")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
