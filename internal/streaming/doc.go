/*
Package streaming protects long downloads from stalled clients.

# Overview

Movie downloads can run for a long time, so the API server sets no overall
write timeout. Without one, a client that stops reading keeps its
connection and goroutine alive indefinitely. IdleWriter bounds each write
instead: before every write it moves the connection's write deadline
IdleTimeout into the future through http.ResponseController.

# Usage

	iw := streaming.NewIdleWriter(w, streaming.DefaultConfig())
	defer iw.Close()

	http.ServeContent(iw, r, name, modTime, blob)

	bytesWritten, duration := iw.Stats()

Close clears the deadline again; without that the kept-alive connection
would be cut by the stale deadline while serving its next request.

# Middleware

http.ResponseController finds the connection through Unwrap methods, so
every wrapping ResponseWriter between the server and the handler must
implement Unwrap. When none is reachable (httptest.ResponseRecorder, for
example) SetWriteDeadline reports http.ErrNotSupported and IdleWriter
stops trying.

# Configuration

	type Config struct {
		// IdleTimeout is the longest a single write may block.
		// Default: 60 seconds. Zero disables deadlines.
		IdleTimeout time.Duration
	}
*/
package streaming
