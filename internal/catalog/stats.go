package catalog

import (
	"context"

	"movies-db/internal/metrics"
)

// Counts summarizes the catalog for the metrics collector.
type Counts struct {
	Entries        int
	WithMedia      int
	PendingPreview int
	Tags           int
}

// Counter is implemented by backends that can count without loading
// every entry.
type Counter interface {
	Counts(ctx context.Context) (Counts, error)
}

// Pinger is implemented by backends holding a connection that can go away.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks idx when it is a Pinger; other indexes are always reachable.
func Ping(ctx context.Context, idx Index) error {
	if p, ok := idx.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CountEntries returns catalog counts, using idx's Counter when it has
// one and walking every entry otherwise.
func CountEntries(ctx context.Context, idx Index) (Counts, error) {
	if c, ok := idx.(Counter); ok {
		return c.Counts(ctx)
	}

	ids, err := idx.SearchMovies(ctx, SearchQuery{})
	if err != nil {
		return Counts{}, err
	}
	tags, err := idx.GetTagCounts(ctx)
	if err != nil {
		return Counts{}, err
	}

	counts := Counts{Entries: len(ids), Tags: len(tags)}
	for _, id := range ids {
		e, err := idx.GetMovie(ctx, id)
		if IsNotFound(err) {
			// removed since the search
			continue
		}
		if err != nil {
			return Counts{}, err
		}
		if e.HasMedia() {
			counts.WithMedia++
		}
		if e.NeedsPreview() {
			counts.PendingPreview++
		}
	}
	return counts, nil
}

// Counts forwards to the wrapped backend.
func (c *CachedIndex) Counts(ctx context.Context) (Counts, error) {
	return CountEntries(ctx, c.Index)
}

// Ping forwards to the wrapped backend.
func (c *CachedIndex) Ping(ctx context.Context) error {
	return Ping(ctx, c.Index)
}

// StatsProvider feeds the metrics collector from an index and a queue
// depth reporter.
type StatsProvider struct {
	idx        Index
	queueDepth func() int
}

// NewStatsProvider returns a metrics.StatsProvider. queueDepth may be nil.
func NewStatsProvider(idx Index, queueDepth func() int) *StatsProvider {
	return &StatsProvider{idx: idx, queueDepth: queueDepth}
}

var _ metrics.StatsProvider = (*StatsProvider)(nil)

func (p *StatsProvider) CollectStats(ctx context.Context) (metrics.Stats, error) {
	counts, err := CountEntries(ctx, p.idx)
	if err != nil {
		return metrics.Stats{}, err
	}
	stats := metrics.Stats{
		TotalEntries:   counts.Entries,
		WithMedia:      counts.WithMedia,
		PendingPreview: counts.PendingPreview,
		TotalTags:      counts.Tags,
	}
	if p.queueDepth != nil {
		stats.QueueDepth = p.queueDepth()
	}
	return stats, nil
}
