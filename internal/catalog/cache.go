package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"movies-db/internal/metrics"
)

// CachedIndex wraps an Index with an LRU cache of GetMovie results.
// Every mutation of an id drops it from the cache. Searches and tag counts
// always go to the wrapped backend.
type CachedIndex struct {
	Index

	// mu keeps a cache fill from racing with a mutation of the same entry:
	// fills hold the read side, mutations the write side.
	mu    sync.RWMutex
	cache *expirable.LRU[ID, Entry]
}

// NewCachedIndex wraps idx with a cache holding up to size entries for ttl.
func NewCachedIndex(idx Index, size int, ttl time.Duration) *CachedIndex {
	return &CachedIndex{
		Index: idx,
		cache: expirable.NewLRU[ID, Entry](size, nil, ttl),
	}
}

// GetMovie returns a cached copy of the entry when present.
func (c *CachedIndex) GetMovie(ctx context.Context, id ID) (Entry, error) {
	if e, ok := c.cache.Get(id); ok {
		metrics.CatalogCacheHits.Inc()
		return e.Clone(), nil
	}
	metrics.CatalogCacheMisses.Inc()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, err := c.Index.GetMovie(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	c.cache.Add(id, e.Clone())
	return e, nil
}

func (c *CachedIndex) invalidate(id ID, mutate func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := mutate()
	c.cache.Remove(id)
	return err
}

func (c *CachedIndex) RemoveMovie(ctx context.Context, id ID) error {
	return c.invalidate(id, func() error { return c.Index.RemoveMovie(ctx, id) })
}

func (c *CachedIndex) ChangeTitle(ctx context.Context, id ID, title string) error {
	return c.invalidate(id, func() error { return c.Index.ChangeTitle(ctx, id, title) })
}

func (c *CachedIndex) ChangeDescription(ctx context.Context, id ID, description string) error {
	return c.invalidate(id, func() error { return c.Index.ChangeDescription(ctx, id, description) })
}

func (c *CachedIndex) ChangeTags(ctx context.Context, id ID, tags []string) error {
	return c.invalidate(id, func() error { return c.Index.ChangeTags(ctx, id, tags) })
}

func (c *CachedIndex) UpdateMediaFileInfo(ctx context.Context, id ID, info FileInfo) error {
	return c.invalidate(id, func() error { return c.Index.UpdateMediaFileInfo(ctx, id, info) })
}

func (c *CachedIndex) UpdatePreviewFileInfo(ctx context.Context, id ID, info FileInfo) error {
	return c.invalidate(id, func() error { return c.Index.UpdatePreviewFileInfo(ctx, id, info) })
}

// Len returns the number of cached entries.
func (c *CachedIndex) Len() int {
	return c.cache.Len()
}
