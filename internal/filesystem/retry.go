package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"movies-db/internal/logging"
	"movies-db/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the defaults used by the blob store.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleError reports whether err is a stale file handle (ESTALE).
func isStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// StatWithRetry performs os.Stat, retrying stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open, retrying stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// withRetry runs fn until it succeeds, fails with anything but ESTALE, or
// MaxRetries retries are used up. The backoff doubles up to MaxBackoff.
func withRetry[T any](op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	backoff := config.InitialBackoff

	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
			}
			return v, nil
		}
		if !isStaleError(err) {
			return v, err
		}

		metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()
		if attempt >= config.MaxRetries {
			logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, err)
			metrics.FilesystemRetryFailures.WithLabelValues(op).Inc()
			return v, err
		}

		metrics.FilesystemRetryAttempts.WithLabelValues(op).Inc()
		logging.Debug("Stale file handle on %s of %s, retrying in %v (attempt %d/%d)",
			op, path, backoff, attempt+1, config.MaxRetries)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
}
