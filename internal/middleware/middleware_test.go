package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"movies-db/internal/logging"
)

// captureLog redirects log output for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(io.Discard) })
	return &buf
}

// =============================================================================
// Logging Middleware Tests
// =============================================================================

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}
	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(data) || rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got n=%d bytesWritten=%d", len(data), n, rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{"Logs regular requests", "/api/v1/movie/search", DefaultLoggingConfig(), true},
		{"Skips configured paths", "/metrics", LoggingConfig{SkipPaths: []string{"/metrics"}}, false},
		{"Logs health checks when enabled", "/health", LoggingConfig{LogHealthChecks: true}, true},
		{"Skips health checks when disabled", "/health", LoggingConfig{LogHealthChecks: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			handler := Logger(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				w.Write([]byte("ok"))
			}))

			req := httptest.NewRequest(http.MethodGet, tt.path+"?title=Al*", http.NoBody)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusTeapot {
				t.Errorf("Expected status 418, got %d", w.Code)
			}

			line := buf.String()
			if logged := line != ""; logged != tt.expectLogging {
				t.Fatalf("Expected logging=%v, got %q", tt.expectLogging, line)
			}
			if tt.expectLogging {
				for _, want := range []string{"GET", tt.path, "title=Al*", " 418 2 "} {
					if !strings.Contains(line, want) {
						t.Errorf("Expected log line to contain %q, got %q", want, line)
					}
				}
			}
		})
	}
}

func TestLoggerIncludesRequestID(t *testing.T) {
	buf := captureLog(t)
	handler := RequestID(Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie", http.NoBody)
	req.Header.Set(RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), " abc-123 ") {
		t.Errorf("Expected request id in log line, got %q", buf.String())
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a  b"},
		{"null\x00byte", "nullbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07", "bell"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.input); got != tt.expected {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"Forwarded list", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"Real IP", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"Remote address", nil, "1.2.3.4:5678", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEscapeW3CField(t *testing.T) {
	if got := escapeW3CField("curl/8.0"); got != "curl/8.0" {
		t.Errorf("Expected unquoted value, got %q", got)
	}
	if got := escapeW3CField(`Mozilla/5.0 (X11) "x"`); got != `"Mozilla/5.0 (X11) ""x"""` {
		t.Errorf("Unexpected escaped value %q", got)
	}
}

// =============================================================================
// Request ID Middleware Tests
// =============================================================================

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		if len(seen) != 36 {
			t.Errorf("Expected a UUID, got %q", seen)
		}
		if w.Header().Get(RequestIDHeader) != seen {
			t.Errorf("Expected response header %q, got %q", seen, w.Header().Get(RequestIDHeader))
		}
	})

	t.Run("keeps client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(RequestIDHeader, "client_id.1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "client_id.1" {
			t.Errorf("Expected client id, got %q", seen)
		}
	})

	t.Run("replaces malformed id", func(t *testing.T) {
		for _, bad := range []string{"has space", "new\nline", strings.Repeat("a", maxRequestIDLength+1)} {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.Header.Set(RequestIDHeader, bad)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seen == bad || len(seen) != 36 {
				t.Errorf("Expected malformed id %q to be replaced, got %q", bad, seen)
			}
		}
	})
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if id := RequestIDFromContext(req.Context()); id != "" {
		t.Errorf("Expected empty id, got %q", id)
	}
}

// =============================================================================
// Compression Middleware Tests
// =============================================================================

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		responseBody      string
		contentType       string
		status            int
		acceptEncoding    string
		rangeHeader       string
		expectCompression bool
	}{
		{"Compresses large JSON", strings.Repeat(`{"id":"x","title":"y"},`, 100), "application/json", http.StatusOK, "gzip", "", true},
		{"Compresses large text", strings.Repeat("error ", 300), "text/plain; charset=utf-8", http.StatusNotFound, "gzip, deflate", "", true},
		{"Doesn't compress small responses", "Small", "application/json", http.StatusOK, "gzip", "", false},
		{"Doesn't compress video", strings.Repeat("data", 500), "video/mp4", http.StatusOK, "gzip", "", false},
		{"Doesn't compress images", strings.Repeat("data", 500), "image/png", http.StatusOK, "gzip", "", false},
		{"Respects client without gzip support", strings.Repeat("data", 500), "application/json", http.StatusOK, "", "", false},
		{"Skips range requests", strings.Repeat("data", 500), "application/json", http.StatusOK, "gzip", "bytes=0-10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.responseBody))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Header().Get("Vary"), "Accept-Encoding") {
				t.Error("Expected Vary: Accept-Encoding")
			}

			isCompressed := w.Header().Get("Content-Encoding") == "gzip"
			if isCompressed != tt.expectCompression {
				t.Fatalf("Expected compression=%v, got compression=%v", tt.expectCompression, isCompressed)
			}

			body := w.Body.Bytes()
			if isCompressed {
				gr, err := gzip.NewReader(w.Body)
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				defer gr.Close()
				if body, err = io.ReadAll(gr); err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}
			}
			if string(body) != tt.responseBody {
				t.Error("Body doesn't match original")
			}
		})
	}
}

func TestGzipResponseWriterBuffering(t *testing.T) {
	w := httptest.NewRecorder()
	grw := newGzipResponseWriter(w, DefaultCompressionConfig())

	smallData := []byte("small")
	n, err := grw.Write(smallData)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(smallData) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(smallData), n)
	}
	if !bytes.Equal(grw.buffer, smallData) {
		t.Error("Buffer content doesn't match written data")
	}
	if w.Body.Len() != 0 {
		t.Error("Expected nothing written before the decision")
	}

	if err := grw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.Body.String() != "small" {
		t.Errorf("Expected buffered data after Close, got %q", w.Body.String())
	}
}

func TestCompressionWithMultipleWrites(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		for i := 0; i < 50; i++ {
			w.Write([]byte(strings.Repeat(`"movie",`, 10)))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/tags", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected response to be compressed")
	}
}

func TestCompressionLevels(t *testing.T) {
	for _, level := range []int{gzip.BestSpeed, gzip.BestCompression} {
		cfg := DefaultCompressionConfig()
		cfg.Level = level
		handler := Compression(cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(strings.Repeat("a", 4096)))
		}))

		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		gr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		data, err := io.ReadAll(gr)
		if err != nil || len(data) != 4096 {
			t.Errorf("level %d: expected 4096 bytes, got %d (%v)", level, len(data), err)
		}
	}
}

// =============================================================================
// Metrics Middleware Tests
// =============================================================================

func TestMetricsResponseWriter(t *testing.T) {
	t.Run("records first status", func(t *testing.T) {
		w := httptest.NewRecorder()
		mrw := newMetricsResponseWriter(w, time.Now(), false)

		mrw.WriteHeader(http.StatusCreated)
		if mrw.statusCode != http.StatusCreated || w.Code != http.StatusCreated {
			t.Errorf("Expected status 201, got %d/%d", mrw.statusCode, w.Code)
		}
		if !mrw.firstByteTime.IsZero() {
			t.Error("Expected firstByteTime to be zero for non-download routes")
		}
	})

	t.Run("download records first byte", func(t *testing.T) {
		start := time.Now()
		mrw := newMetricsResponseWriter(httptest.NewRecorder(), start, true)

		time.Sleep(5 * time.Millisecond)
		mrw.Write([]byte("data"))
		first := mrw.firstByteTime
		if first.IsZero() || first.Before(start) {
			t.Fatalf("Expected firstByteTime after start, got %v", first)
		}

		time.Sleep(5 * time.Millisecond)
		mrw.Write([]byte("more"))
		if mrw.firstByteTime != first {
			t.Error("firstByteTime should not change after the first write")
		}

		if d := mrw.GetDuration(); d != first.Sub(start) {
			t.Errorf("Expected time to first byte %v, got %v", first.Sub(start), d)
		}
	})

	t.Run("non-download returns total duration", func(t *testing.T) {
		mrw := newMetricsResponseWriter(httptest.NewRecorder(), time.Now(), false)
		mrw.WriteHeader(http.StatusOK)
		time.Sleep(5 * time.Millisecond)
		if d := mrw.GetDuration(); d < 5*time.Millisecond {
			t.Errorf("Expected duration >= 5ms, got %v", d)
		}
	})
}

func TestIsDownloadPath(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		expected bool
	}{
		{http.MethodGet, "/api/v1/movie/file", true},
		{http.MethodHead, "/api/v1/movie/preview/file", true},
		{http.MethodPost, "/api/v1/movie/file", false},
		{http.MethodGet, "/api/v1/movie", false},
		{http.MethodGet, "/api/v1/movie/preview", false},
	}

	for _, tt := range tests {
		if got := isDownloadPath(tt.method, tt.path); got != tt.expected {
			t.Errorf("isDownloadPath(%s, %q) = %v, want %v", tt.method, tt.path, got, tt.expected)
		}
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()

	for _, path := range []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"} {
		found := false
		for _, skip := range config.SkipPaths {
			if skip == path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %q to be in default SkipPaths", path)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/", "/"},
		{"/health", "/health"},
		{"/api/v1/movie", "/api/v1/movie"},
		{"/api/v1/movie/preview", "/api/v1/movie/preview"},
		{"/api/v1/movie/preview/file", "/api/v1/movie/preview/{path}"},
		{"/a/b/c/d/e/f/g", "/a/b/c/d/{path}"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.expected)
		}
	}
}

func TestRouteLabelUsesTemplate(t *testing.T) {
	var label string
	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			label = routeLabel(r)
		})
	})
	router.HandleFunc("/api/v1/things/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/things/abc", http.NoBody))
	if label != "/api/v1/things/{name}" {
		t.Errorf("Expected route template, got %q", label)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x/y/z", http.NoBody)
	if got := routeLabel(req); got != "/api/v1/x/y/{path}" {
		t.Errorf("Expected truncated path without a route, got %q", got)
	}
}

func TestMetricsMiddlewareStatusCode(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))

	var sawStatus int
	router.HandleFunc("/api/v1/movie", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		sawStatus = http.StatusConflict
	})
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/movie", http.NoBody))
	if w.Code != http.StatusConflict || sawStatus != http.StatusConflict {
		t.Errorf("Expected status 409 to pass through, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected skipped path to be served, got %d", w.Code)
	}
}

// =============================================================================
// CORS Tests
// =============================================================================

func TestCORSPreflightSkipsHandler(t *testing.T) {
	called := false
	handler := CORS(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/movie/file", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	req.Header.Set("Access-Control-Request-Headers", "Range, X-Request-ID")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("Expected the preflight to be answered without calling the handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != http.MethodDelete {
		t.Errorf("Expected DELETE to be allowed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Range") || !strings.Contains(got, "X-Request-Id") {
		t.Errorf("Expected Range and X-Request-Id to be allowed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("Expected max age 600, got %q", got)
	}
}

func TestCORSRejectsUnknownMethod(t *testing.T) {
	handler := CORS(DefaultCORSConfig())(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/movie", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for PUT, got %d", w.Code)
	}
}

func TestCORSDisabled(t *testing.T) {
	handler := CORS(CORSConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected the handler to run, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS headers, got %q", got)
	}
}

// =============================================================================
// Wrapper Tests
// =============================================================================

// TestWrappersReachConnection checks that every wrapping writer unwraps, so
// handlers can set write deadlines on the underlying connection.
func TestWrappersReachConnection(t *testing.T) {
	captureLog(t)

	errCh := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		errCh <- http.NewResponseController(w).SetWriteDeadline(time.Now().Add(time.Second))
		w.Write([]byte("ok"))
	})

	chain := RequestID(Logger(DefaultLoggingConfig())(
		CORS(DefaultCORSConfig())(
			Compression(DefaultCompressionConfig())(
				Metrics(DefaultMetricsConfig())(handler)))))
	srv := httptest.NewServer(chain)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/movie/file?id=x", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if err := <-errCh; err != nil {
		t.Errorf("Expected SetWriteDeadline to reach the connection, got %v", err)
	}
}

func BenchmarkLoggingMiddleware(b *testing.B) {
	logging.SetOutput(io.Discard)
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func BenchmarkCompressionMiddleware(b *testing.B) {
	body := []byte(strings.Repeat(`{"id":"x"},`, 200))
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
