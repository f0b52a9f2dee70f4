package streaming

import (
	"errors"
	"net/http"
	"time"

	"movies-db/internal/logging"
)

// Config configures the idle writer.
type Config struct {
	// IdleTimeout is the longest a single write may block. Each write
	// moves the connection's write deadline IdleTimeout into the future;
	// zero disables deadlines.
	IdleTimeout time.Duration
}

// DefaultConfig returns the defaults used for downloads.
func DefaultConfig() Config {
	return Config{IdleTimeout: 60 * time.Second}
}

// IdleWriter wraps an http.ResponseWriter for long downloads. The server
// has no overall write timeout, so a client that stops reading would hold
// its connection forever; IdleWriter lets a download take as long as it
// needs while the client keeps reading and cuts the connection once a
// write stalls for IdleTimeout.
type IdleWriter struct {
	http.ResponseWriter
	rc           *http.ResponseController
	idleTimeout  time.Duration
	deadlines    bool
	start        time.Time
	bytesWritten int64
}

// NewIdleWriter wraps w. Writers that cannot set deadlines, such as
// httptest.ResponseRecorder, are passed through unchanged.
func NewIdleWriter(w http.ResponseWriter, config Config) *IdleWriter {
	return &IdleWriter{
		ResponseWriter: w,
		rc:             http.NewResponseController(w),
		idleTimeout:    config.IdleTimeout,
		deadlines:      config.IdleTimeout > 0,
		start:          time.Now(),
	}
}

func (iw *IdleWriter) Write(p []byte) (int, error) {
	if iw.deadlines {
		err := iw.rc.SetWriteDeadline(time.Now().Add(iw.idleTimeout))
		if errors.Is(err, http.ErrNotSupported) {
			iw.deadlines = false
		} else if err != nil {
			return 0, err
		}
	}

	n, err := iw.ResponseWriter.Write(p)
	iw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher
func (iw *IdleWriter) Flush() {
	if err := iw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("Flush failed: %v", err)
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (iw *IdleWriter) Unwrap() http.ResponseWriter {
	return iw.ResponseWriter
}

// Close clears the write deadline so a kept-alive connection is not cut
// by it while serving the next request.
func (iw *IdleWriter) Close() error {
	if !iw.deadlines {
		return nil
	}
	iw.deadlines = false
	if err := iw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Stats returns the bytes written so far and the time since the writer
// was created.
func (iw *IdleWriter) Stats() (bytesWritten int64, duration time.Duration) {
	return iw.bytesWritten, time.Since(iw.start)
}
