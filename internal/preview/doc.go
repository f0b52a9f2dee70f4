/*
Package preview generates preview images for catalog entries.

An entry moves through three states, all derived from its stored fields:

	no media  ->  media, no preview  ->  media and preview

The second transition is the pipeline's job. Uploads enqueue a Job after
the media file info has been recorded, and Run starts with a
reconciliation pass that re-queues every entry left in the middle state by
an earlier crash or failure. There are no retries: a failed job leaves its
entry waiting for the next upload, reconciliation or manual re-enqueue.

# Processing

For each job the worker resolves the media file path, probes its duration,
extracts the frame at the midpoint as PNG, optionally scales it down, writes
it as the entry's preview blob and records the preview file info.

	p := preview.New(index, store, mediaprobe.New(""), preview.Config{MaxWidth: 640})
	go p.Run(ctx)
	p.Enqueue(preview.Job{ID: id, Ext: "mp4"})

Drain runs the same steps once over the current backlog and returns; the
regen-previews command uses it.
*/
package preview
