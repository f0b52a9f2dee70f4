package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"movies-db/internal/catalog"
)

func (ix *Index) AddMovie(ctx context.Context, movie catalog.Movie) (catalog.ID, error) {
	done := observeQuery("add_movie")

	movie, err := catalog.NormalizeMovie(movie)
	if err != nil {
		done(err)
		return "", err
	}
	id := catalog.NewID()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = ix.withTx(ctx, "add movie", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO movies (id, title, description, created_at) VALUES ($1, $2, $3, $4)",
			string(id), movie.Title, movie.Description, catalog.Now(),
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

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		entry                   catalog.Entry
		createdAt               time.Time
		mediaExt, mediaMime     *string
		previewExt, previewMime *string
	)
	err := ix.pool.QueryRow(ctx, `
		SELECT title, description, created_at,
			media_extension, media_mime_type, preview_extension, preview_mime_type
		FROM movies WHERE id = $1
	`, string(id)).Scan(
		&entry.Movie.Title, &entry.Movie.Description, &createdAt,
		&mediaExt, &mediaMime, &previewExt, &previewMime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		err = catalog.NotFound(id)
		done(err)
		return catalog.Entry{}, err
	}
	if err != nil {
		err = catalog.Internal("get movie", err)
		done(err)
		return catalog.Entry{}, err
	}

	entry.CreatedAt = createdAt.UTC()
	entry.MediaInfo = fileInfo(mediaExt, mediaMime)
	entry.PreviewInfo = fileInfo(previewExt, previewMime)

	rows, err := ix.pool.Query(ctx, "SELECT tag FROM movie_tags WHERE movie_id = $1 ORDER BY tag", string(id))
	if err != nil {
		err = catalog.Internal("get tags", err)
		done(err)
		return catalog.Entry{}, err
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		err = catalog.Internal("scan tags", err)
		done(err)
		return catalog.Entry{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	entry.Movie.Tags = tags

	done(nil)
	return entry, nil
}

func (ix *Index) RemoveMovie(ctx context.Context, id catalog.ID) error {
	done := observeQuery("remove_movie")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// movie_tags rows go with the movie through ON DELETE CASCADE.
	tag, err := ix.pool.Exec(ctx, "DELETE FROM movies WHERE id = $1", string(id))
	err = checkAffected(id, "delete movie", tag, err)
	done(err)
	return err
}

func (ix *Index) ChangeTitle(ctx context.Context, id catalog.ID, title string) error {
	if err := catalog.ValidateTitle(title); err != nil {
		return err
	}
	return ix.updateColumns(ctx, "change_title", id, "title = $2", title)
}

func (ix *Index) ChangeDescription(ctx context.Context, id catalog.ID, description string) error {
	return ix.updateColumns(ctx, "change_description", id, "description = $2", description)
}

func (ix *Index) UpdateMediaFileInfo(ctx context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.updateColumns(ctx, "update_media_info", id,
		"media_extension = $2, media_mime_type = $3", info.Extension, info.MimeType)
}

func (ix *Index) UpdatePreviewFileInfo(ctx context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.updateColumns(ctx, "update_preview_info", id,
		"preview_extension = $2, preview_mime_type = $3", info.Extension, info.MimeType)
}

func (ix *Index) ChangeTags(ctx context.Context, id catalog.ID, tags []string) error {
	done := observeQuery("change_tags")
	tags = catalog.NormalizeTags(tags)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := ix.withTx(ctx, "change tags", func(tx pgx.Tx) error {
		// Lock the row so a concurrent RemoveMovie cannot slip in between.
		var found string
		err := tx.QueryRow(ctx, "SELECT id FROM movies WHERE id = $1 FOR UPDATE", string(id)).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.NotFound(id)
		}
		if err != nil {
			return catalog.Internal("check movie", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM movie_tags WHERE movie_id = $1", string(id)); err != nil {
			return catalog.Internal("delete tags", err)
		}
		return insertTags(ctx, tx, id, tags)
	})
	done(err)
	return err
}

// SearchMovies translates the query into a single SELECT. Title globs
// become LIKE patterns.
func (ix *Index) SearchMovies(ctx context.Context, query catalog.SearchQuery) ([]catalog.ID, error) {
	done := observeQuery("search_movies")

	query, err := query.Normalize()
	if err != nil {
		done(err)
		return nil, err
	}

	var (
		sb    strings.Builder
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString("SELECT m.id FROM movies m")
	if query.TitlePattern != nil {
		where = append(where, "m.title LIKE "+arg(globToLike(*query.TitlePattern)))
	}
	if len(query.Tags) > 0 {
		where = append(where,
			"(SELECT COUNT(*) FROM movie_tags t WHERE t.movie_id = m.id AND t.tag = ANY("+arg(query.Tags)+")) = "+
				arg(len(query.Tags)))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
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

	if query.Limit != nil {
		sb.WriteString(" LIMIT " + arg(*query.Limit))
	}
	sb.WriteString(" OFFSET " + arg(query.OffsetValue()))

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := ix.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		err = catalog.Internal("search movies", err)
		done(err)
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		err = catalog.Internal("scan search results", err)
		done(err)
		return nil, err
	}

	ids := make([]catalog.ID, 0, len(found))
	for _, id := range found {
		ids = append(ids, catalog.ID(id))
	}
	done(nil)
	return ids, nil
}

func (ix *Index) GetTagCounts(ctx context.Context) ([]catalog.TagCount, error) {
	done := observeQuery("get_tag_counts")

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := ix.pool.Query(ctx, `
		SELECT tag, COUNT(*)::int AS n
		FROM movie_tags
		GROUP BY tag
		ORDER BY n DESC, tag ASC
	`)
	if err != nil {
		err = catalog.Internal("get tag counts", err)
		done(err)
		return nil, err
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.TagCount, error) {
		var tc catalog.TagCount
		err := row.Scan(&tc.Tag, &tc.Count)
		return tc, err
	})
	if err != nil {
		err = catalog.Internal("scan tag counts", err)
		done(err)
		return nil, err
	}
	if counts == nil {
		counts = []catalog.TagCount{}
	}
	done(nil)
	return counts, nil
}

// Counts implements catalog.Counter with aggregate queries.
func (ix *Index) Counts(ctx context.Context) (catalog.Counts, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c catalog.Counts
	err := ix.pool.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE media_extension IS NOT NULL)::int,
			COUNT(*) FILTER (WHERE media_extension IS NOT NULL AND preview_extension IS NULL)::int,
			(SELECT COUNT(DISTINCT tag) FROM movie_tags)::int
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

// updateColumns runs an UPDATE where $1 is always the id.
func (ix *Index) updateColumns(ctx context.Context, op string, id catalog.ID, set string, values ...any) error {
	done := observeQuery(op)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	args := append([]any{string(id)}, values...)
	tag, err := ix.pool.Exec(ctx, "UPDATE movies SET "+set+" WHERE id = $1", args...)
	err = checkAffected(id, op, tag, err)
	done(err)
	return err
}

func insertTags(ctx context.Context, tx pgx.Tx, id catalog.ID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tag := range tags {
		batch.Queue("INSERT INTO movie_tags (movie_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING", string(id), tag)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return catalog.Internal("insert tags", err)
	}
	return nil
}

func checkAffected(id catalog.ID, op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return catalog.Internal(op, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.NotFound(id)
	}
	return nil
}

func fileInfo(ext, mime *string) *catalog.FileInfo {
	if ext == nil {
		return nil
	}
	info := &catalog.FileInfo{Extension: *ext}
	if mime != nil {
		info.MimeType = *mime
	}
	return info
}

// globToLike converts a '*' / '?' glob into a LIKE pattern. LIKE's own
// metacharacters and the backslash escape are escaped first.
func globToLike(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for _, r := range pattern {
		switch r {
		case '\\', '%', '_':
			b.WriteRune('\\')
			b.WriteRune(r)
		case '*':
			b.WriteRune('%')
		case '?':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
