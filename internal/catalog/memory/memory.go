// Package memory is the in-process reference implementation of
// catalog.Index. Nothing is persisted; it backs tests and single-run
// deployments.
package memory

import (
	"context"
	"sync"

	"movies-db/internal/catalog"
)

// Index keeps entries in a map guarded by a single reader/writer lock,
// plus an inverted tag index used for tag filtering and tag counts.
type Index struct {
	mu      sync.RWMutex
	entries map[catalog.ID]*catalog.Entry
	tags    map[string]map[catalog.ID]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{
		entries: make(map[catalog.ID]*catalog.Entry),
		tags:    make(map[string]map[catalog.ID]struct{}),
	}
}

var _ catalog.Index = (*Index)(nil)

func (ix *Index) AddMovie(_ context.Context, movie catalog.Movie) (catalog.ID, error) {
	movie, err := catalog.NormalizeMovie(movie)
	if err != nil {
		return "", err
	}

	id := catalog.NewID()
	entry := &catalog.Entry{
		Movie:     movie,
		CreatedAt: catalog.Now(),
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries[id] = entry
	ix.indexTags(id, movie.Tags)
	return id, nil
}

func (ix *Index) GetMovie(_ context.Context, id catalog.ID) (catalog.Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	e, ok := ix.entries[id]
	if !ok {
		return catalog.Entry{}, catalog.NotFound(id)
	}
	return e.Clone(), nil
}

func (ix *Index) RemoveMovie(_ context.Context, id catalog.ID) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[id]
	if !ok {
		return catalog.NotFound(id)
	}
	ix.unindexTags(id, e.Movie.Tags)
	delete(ix.entries, id)
	return nil
}

func (ix *Index) ChangeTitle(_ context.Context, id catalog.ID, title string) error {
	if err := catalog.ValidateTitle(title); err != nil {
		return err
	}
	return ix.update(id, func(e *catalog.Entry) {
		e.Movie.Title = title
	})
}

func (ix *Index) ChangeDescription(_ context.Context, id catalog.ID, description string) error {
	return ix.update(id, func(e *catalog.Entry) {
		e.Movie.Description = description
	})
}

func (ix *Index) ChangeTags(_ context.Context, id catalog.ID, tags []string) error {
	tags = catalog.NormalizeTags(tags)
	return ix.update(id, func(e *catalog.Entry) {
		ix.unindexTags(id, e.Movie.Tags)
		e.Movie.Tags = tags
		ix.indexTags(id, tags)
	})
}

func (ix *Index) UpdateMediaFileInfo(_ context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.update(id, func(e *catalog.Entry) {
		e.MediaInfo = &info
	})
}

func (ix *Index) UpdatePreviewFileInfo(_ context.Context, id catalog.ID, info catalog.FileInfo) error {
	return ix.update(id, func(e *catalog.Entry) {
		e.PreviewInfo = &info
	})
}

// SearchMovies narrows candidates through the tag index when the query
// names tags, then sorts, filters and paginates them.
func (ix *Index) SearchMovies(_ context.Context, query catalog.SearchQuery) ([]catalog.ID, error) {
	query, err := query.Normalize()
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var ids []catalog.ID
	if len(query.Tags) > 0 {
		ids = ix.idsWithTag(query.Tags[0])
	} else {
		ids = make([]catalog.ID, 0, len(ix.entries))
		for id := range ix.entries {
			ids = append(ids, id)
		}
	}

	candidates := make([]catalog.Candidate, 0, len(ids))
	for _, id := range ids {
		e, ok := ix.entries[id]
		if !ok {
			return nil, catalog.Internal("search", catalog.NotFound(id))
		}
		candidates = append(candidates, catalog.Candidate{ID: id, Entry: e})
	}

	return catalog.Select(candidates, query), nil
}

func (ix *Index) GetTagCounts(_ context.Context) ([]catalog.TagCount, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	counts := make([]catalog.TagCount, 0, len(ix.tags))
	for tag, ids := range ix.tags {
		counts = append(counts, catalog.TagCount{Tag: tag, Count: len(ids)})
	}
	catalog.SortTagCounts(counts)
	return counts, nil
}

// Close is a no-op.
func (ix *Index) Close() error {
	return nil
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Counts implements catalog.Counter.
func (ix *Index) Counts(_ context.Context) (catalog.Counts, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	c := catalog.Counts{Entries: len(ix.entries), Tags: len(ix.tags)}
	for _, e := range ix.entries {
		if e.HasMedia() {
			c.WithMedia++
		}
		if e.NeedsPreview() {
			c.PendingPreview++
		}
	}
	return c, nil
}

func (ix *Index) update(id catalog.ID, fn func(e *catalog.Entry)) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	e, ok := ix.entries[id]
	if !ok {
		return catalog.NotFound(id)
	}
	fn(e)
	return nil
}

// indexTags and unindexTags must be called with mu held for writing.
func (ix *Index) indexTags(id catalog.ID, tags []string) {
	for _, tag := range tags {
		set, ok := ix.tags[tag]
		if !ok {
			set = make(map[catalog.ID]struct{})
			ix.tags[tag] = set
		}
		set[id] = struct{}{}
	}
}

func (ix *Index) unindexTags(id catalog.ID, tags []string) {
	for _, tag := range tags {
		set := ix.tags[tag]
		delete(set, id)
		if len(set) == 0 {
			delete(ix.tags, tag)
		}
	}
}

func (ix *Index) idsWithTag(tag string) []catalog.ID {
	set := ix.tags[tag]
	ids := make([]catalog.ID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
