package metrics

// PreviewStatuses lists the outcome labels of PreviewJobsTotal.
var PreviewStatuses = []string{
	"success",
	"error_path",
	"error_probe",
	"error_extract",
	"error_resize",
	"error_write",
	"error_index",
}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(backend string) {
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	if backend != "memory" {
		ops := []string{"add_movie", "get_movie", "remove_movie", "change_title",
			"change_description", "change_tags", "update_media_info", "update_preview_info",
			"search_movies", "get_tag_counts"}
		for _, op := range ops {
			DBQueryTotal.WithLabelValues(backend, op, "success")
			DBQueryTotal.WithLabelValues(backend, op, "error")
			DBQueryDuration.WithLabelValues(backend, op)
		}
		DBConnectionsOpen.WithLabelValues(backend)
	}

	for _, status := range PreviewStatuses {
		PreviewJobsTotal.WithLabelValues(status)
	}

	for _, cmd := range []string{"ffprobe", "ffmpeg"} {
		PreviewFFmpegDuration.WithLabelValues(cmd)
	}

	for _, op := range []string{"allocate", "write", "read", "remove"} {
		BlobOperationDuration.WithLabelValues(op)
		BlobOperationErrors.WithLabelValues(op)
	}
	for _, kind := range []string{"media", "preview"} {
		BlobBytesWritten.WithLabelValues(kind)
	}
}
