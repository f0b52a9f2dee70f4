package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/metrics"
)

// Preview blobs are always PNG.
var previewInfo = catalog.FileInfo{Extension: "png", MimeType: "image/png"}

// Prober reads media files. mediaprobe.FFmpeg implements it.
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
	ExtractFrame(ctx context.Context, path string, seconds float64) ([]byte, error)
}

// Gate holds the worker back before each job. memory.Monitor implements
// it to pause generation under memory pressure.
type Gate interface {
	Wait(ctx context.Context) error
}

// Config tunes the pipeline.
type Config struct {
	// MaxWidth bounds both sides of the stored preview. Larger frames are
	// scaled down keeping their aspect ratio; 0 stores frames as extracted.
	MaxWidth int

	// Gate is optional.
	Gate Gate
}

// Status is a snapshot of the pipeline for health reporting.
type Status struct {
	Running   bool  `json:"running"`
	Pending   int   `json:"pending"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Pipeline turns entries that have media but no preview into entries with
// a preview. A single worker consumes jobs in FIFO order; a failing job is
// logged and dropped and never stops the loop.
type Pipeline struct {
	index  catalog.Index
	store  blobstore.Store
	prober Prober
	cfg    Config
	queue  *Queue

	running   atomic.Bool
	succeeded atomic.Int64
	failed    atomic.Int64
}

// New creates a pipeline with an open, empty queue.
func New(index catalog.Index, store blobstore.Store, prober Prober, cfg Config) *Pipeline {
	return &Pipeline{
		index:  index,
		store:  store,
		prober: prober,
		cfg:    cfg,
		queue:  NewQueue(),
	}
}

// Enqueue schedules job. It never blocks and reports false after Close.
func (p *Pipeline) Enqueue(job Job) bool {
	if !p.queue.Push(job) {
		logging.Warn("Preview queue closed, dropping job for %s", job.ID)
		return false
	}
	metrics.PreviewQueueDepth.Set(float64(p.queue.Len()))
	logging.Debug("Preview job queued for %s (%d pending)", job.ID, p.queue.Len())
	return true
}

// Reconcile enqueues a job for every entry that has media but no preview
// and returns how many were queued.
func (p *Pipeline) Reconcile(ctx context.Context) (int, error) {
	ids, err := p.index.SearchMovies(ctx, catalog.SearchQuery{})
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	queued := 0
	for _, id := range ids {
		entry, err := p.index.GetMovie(ctx, id)
		if catalog.IsNotFound(err) {
			continue
		}
		if err != nil {
			return queued, fmt.Errorf("reconcile %s: %w", id, err)
		}
		if !entry.NeedsPreview() {
			continue
		}
		if p.Enqueue(Job{ID: id, Ext: entry.MediaInfo.Extension}) {
			queued++
		}
	}

	metrics.PreviewReconciledTotal.Add(float64(queued))
	logging.Info("Preview reconciliation: %d of %d entries need a preview", queued, len(ids))
	return queued, nil
}

// Run reconciles once and then processes jobs until the queue is closed
// and empty or ctx is done. A failed reconciliation is logged; new jobs
// are still processed.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Reconcile(ctx); err != nil {
		logging.Error("Preview reconciliation failed: %v", err)
	}
	p.loop(ctx)
	return nil
}

// Drain reconciles, closes the queue and processes everything queued.
// It is meant for one-shot runs where no new jobs arrive.
func (p *Pipeline) Drain(ctx context.Context) (Status, error) {
	_, err := p.Reconcile(ctx)
	p.Close()
	if err != nil {
		return p.Status(), err
	}
	p.loop(ctx)
	return p.Status(), ctx.Err()
}

// Close stops accepting jobs; queued jobs are still processed.
func (p *Pipeline) Close() {
	p.queue.Close()
}

// Pending returns the number of queued jobs.
func (p *Pipeline) Pending() int {
	return p.queue.Len()
}

// Status returns a snapshot of the pipeline counters.
func (p *Pipeline) Status() Status {
	return Status{
		Running:   p.running.Load(),
		Pending:   p.queue.Len(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pipeline) loop(ctx context.Context) {
	p.running.Store(true)
	metrics.PreviewWorkerRunning.Set(1)
	defer func() {
		p.running.Store(false)
		metrics.PreviewWorkerRunning.Set(0)
	}()

	logging.Info("Preview worker started")
	for {
		job, ok := p.queue.Pop(ctx)
		if !ok {
			logging.Info("Preview worker stopped")
			return
		}
		metrics.PreviewQueueDepth.Set(float64(p.queue.Len()))
		if p.cfg.Gate != nil {
			if err := p.cfg.Gate.Wait(ctx); err != nil {
				logging.Warn("Preview worker stopped while paused; job for %s not processed", job.ID)
				return
			}
		}
		p.process(ctx, job)
	}
}

// stepError tags a failure with the metrics status of the step that failed.
type stepError struct {
	status string
	err    error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func fail(status string, err error) error {
	return &stepError{status: status, err: err}
}

func (p *Pipeline) process(ctx context.Context, job Job) {
	start := time.Now()
	logging.Info("Generating preview for movie %s", job.ID)

	err := p.generate(ctx, job)
	metrics.PreviewJobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		status := "error_index"
		var se *stepError
		if errors.As(err, &se) {
			status = se.status
		}
		metrics.PreviewJobsTotal.WithLabelValues(status).Inc()
		p.failed.Add(1)
		logging.Error("Preview for movie %s failed: %v", job.ID, err)
		return
	}

	metrics.PreviewJobsTotal.WithLabelValues("success").Inc()
	p.succeeded.Add(1)
	logging.Info("Preview for movie %s written in %v", job.ID, time.Since(start).Round(time.Millisecond))
}

func (p *Pipeline) generate(ctx context.Context, job Job) error {
	path, err := p.store.Path(job.ID, blobstore.MediaData(job.Ext))
	if err != nil {
		return fail("error_path", fmt.Errorf("resolve media path: %w", err))
	}
	logging.Debug("Movie file path: %s", path)

	duration, err := p.prober.Probe(ctx, path)
	if err != nil {
		return fail("error_probe", err)
	}

	// The frame in the middle of the movie is the preview.
	frame, err := p.prober.ExtractFrame(ctx, path, duration/2)
	if err != nil {
		return fail("error_extract", err)
	}

	frame, err = p.fit(frame)
	if err != nil {
		return fail("error_resize", err)
	}

	if err := p.writePreview(job.ID, frame); err != nil {
		return fail("error_write", err)
	}

	// A written blob is kept even if this update fails.
	if err := p.index.UpdatePreviewFileInfo(ctx, job.ID, previewInfo); err != nil {
		return fail("error_index", err)
	}
	return nil
}

// fit scales frame down to the configured bound.
func (p *Pipeline) fit(frame []byte) ([]byte, error) {
	if p.cfg.MaxWidth <= 0 {
		return frame, nil
	}

	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= p.cfg.MaxWidth && b.Dy() <= p.cfg.MaxWidth {
		return frame, nil
	}

	thumb := imaging.Fit(img, p.cfg.MaxWidth, p.cfg.MaxWidth, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	logging.Debug("Preview scaled from %dx%d to %dx%d", b.Dx(), b.Dy(), thumb.Bounds().Dx(), thumb.Bounds().Dy())
	return buf.Bytes(), nil
}

func (p *Pipeline) writePreview(id catalog.ID, data []byte) error {
	w, err := p.store.OpenWriter(id, blobstore.PreviewData(previewInfo.Extension))
	if err != nil {
		return fmt.Errorf("open preview writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Abort()
		return fmt.Errorf("write preview: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit preview: %w", err)
	}
	return nil
}
