package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// Level is the gzip compression level (gzip.BestSpeed to gzip.BestCompression)
	Level int
	// CompressibleTypes lists the media types that are compressed. Media
	// and preview blobs are already compressed and never listed.
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses JSON and text responses of 1KB or more.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
		},
	}
}

// gzipWriterPools holds one pool per compression level.
var gzipWriterPools sync.Map

func getGzipWriter(level int, w io.Writer) *gzip.Writer {
	pool, _ := gzipWriterPools.LoadOrStore(level, &sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				gz, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return gz
		},
	})
	gz := pool.(*sync.Pool).Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

func putGzipWriter(level int, gz *gzip.Writer) {
	if pool, ok := gzipWriterPools.Load(level); ok {
		pool.(*sync.Pool).Put(gz)
	}
}

// gzipResponseWriter buffers up to MinSize bytes, then decides whether to
// compress from the Content-Type and the buffered size.
type gzipResponseWriter struct {
	http.ResponseWriter
	gzipWriter     *gzip.Writer
	config         CompressionConfig
	buffer         []byte
	statusCode     int
	decided        bool
	shouldCompress bool
	err            error
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		statusCode:     http.StatusOK,
		buffer:         make([]byte, 0, config.MinSize+1),
	}
}

// WriteHeader captures the status code until the compression decision.
func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if g.decided {
		return
	}
	g.statusCode = statusCode
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	if g.decided {
		if g.shouldCompress {
			return g.gzipWriter.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.config.MinSize {
		g.finalize()
		if g.err != nil {
			return 0, g.err
		}
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressibleContentType() bool {
	contentType := g.Header().Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, compressible := range g.config.CompressibleTypes {
		if mediaType == compressible {
			return true
		}
	}
	return false
}

// finalize writes the status and the buffered bytes, compressed or not.
func (g *gzipResponseWriter) finalize() {
	if g.decided {
		return
	}
	g.decided = true

	// Bodiless and partial responses pass through untouched.
	g.shouldCompress = len(g.buffer) >= g.config.MinSize &&
		g.statusCode != http.StatusPartialContent &&
		g.statusCode != http.StatusNoContent &&
		g.statusCode != http.StatusNotModified &&
		g.Header().Get("Content-Encoding") == "" &&
		g.compressibleContentType()

	if g.shouldCompress {
		g.Header().Del("Content-Length")
		g.Header().Set("Content-Encoding", "gzip")
		g.gzipWriter = getGzipWriter(g.config.Level, g.ResponseWriter)
		g.ResponseWriter.WriteHeader(g.statusCode)
		_, g.err = g.gzipWriter.Write(g.buffer)
	} else {
		g.ResponseWriter.WriteHeader(g.statusCode)
		if len(g.buffer) > 0 {
			_, g.err = g.ResponseWriter.Write(g.buffer)
		}
	}
	g.buffer = nil
}

// Close finalizes the response and returns the gzip writer to the pool.
func (g *gzipResponseWriter) Close() error {
	g.finalize()

	if g.gzipWriter != nil {
		err := g.gzipWriter.Close()
		putGzipWriter(g.config.Level, g.gzipWriter)
		g.gzipWriter = nil
		return err
	}
	return g.err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// Flush forces the compression decision with what has been buffered.
func (g *gzipResponseWriter) Flush() {
	g.finalize()
	if g.gzipWriter != nil {
		_ = g.gzipWriter.Flush()
	}
	if flusher, ok := g.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Compression returns a middleware that gzips JSON and text responses for
// clients that accept it. Range and HEAD requests are passed through so
// http.ServeContent keeps control of the body.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")

			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				r.Method == http.MethodHead ||
				r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, config)
			defer func() {
				// The client may have gone away; nothing useful to do.
				_ = gzw.Close()
			}()

			next.ServeHTTP(gzw, r)
		})
	}
}
