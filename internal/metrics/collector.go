package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"movies-db/internal/logging"
)

// StatsProvider supplies catalog statistics to the collector.
type StatsProvider interface {
	CollectStats(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog statistics
type Stats struct {
	TotalEntries   int
	WithMedia      int
	PendingPreview int
	TotalTags      int
	QueueDepth     int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	timeout       time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
	startOnce     sync.Once
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector. dbPath is the SQLite
// database file whose size is reported; leave it empty for other backends.
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		timeout:       30 * time.Second,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	c.startOnce.Do(func() {
		go c.collectLoop()
	})
}

// Stop stops the metrics collection and waits for a started loop to exit.
// It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	started := true
	c.startOnce.Do(func() { started = false })
	if started {
		<-c.doneChan
	}
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectDBSize()

	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.statsProvider.CollectStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CatalogEntriesTotal.Set(float64(stats.TotalEntries))
	CatalogEntriesWithMedia.Set(float64(stats.WithMedia))
	CatalogEntriesPendingPreview.Set(float64(stats.PendingPreview))
	CatalogTagsTotal.Set(float64(stats.TotalTags))
	PreviewQueueDepth.Set(float64(stats.QueueDepth))

	logging.Debug("Metrics collected: entries=%d, with_media=%d, pending_preview=%d, tags=%d, queue=%d",
		stats.TotalEntries, stats.WithMedia, stats.PendingPreview, stats.TotalTags, stats.QueueDepth)
}

// collectDBSize reports the size of the SQLite database and its WAL/SHM files.
func (c *Collector) collectDBSize() {
	if c.dbPath == "" {
		return
	}

	files := map[string]string{
		"main": c.dbPath,
		"wal":  c.dbPath + "-wal",
		"shm":  c.dbPath + "-shm",
	}
	for label, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			DBSizeBytes.WithLabelValues(label).Set(0)
			continue
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
	}
}
