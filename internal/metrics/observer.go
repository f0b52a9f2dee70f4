package metrics

// BlobObserver records blob store activity into the Prometheus collectors
// declared in metrics.go. It satisfies blobstore.Observer.
type BlobObserver struct{}

// NewBlobObserver creates an observer for the blob store.
func NewBlobObserver() *BlobObserver {
	return &BlobObserver{}
}

func (o *BlobObserver) ObserveOperation(operation string, durationSeconds float64, err error) {
	BlobOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		BlobOperationErrors.WithLabelValues(operation).Inc()
	}
}

func (o *BlobObserver) ObserveBytesWritten(kind string, n int64) {
	BlobBytesWritten.WithLabelValues(kind).Add(float64(n))
}
