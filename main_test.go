package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/catalog/memory"
	"movies-db/internal/handlers"
	"movies-db/internal/middleware"
	"movies-db/internal/preview"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return newTestHandlerWithOrigins(t, []string{"*"})
}

func newTestHandlerWithOrigins(t *testing.T, origins []string) http.Handler {
	t.Helper()
	idx := memory.New()
	store := blobstore.NewMemoryStore()
	pipeline := preview.New(idx, store, nil, preview.Config{})
	t.Cleanup(pipeline.Close)

	router := newRouter(handlers.New(idx, store, pipeline, "memory"))
	return newHandler(router, false, origins)
}

func TestHandlerChain(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/movie", strings.NewReader(`{"title":"Alien","tags":["SciFi"]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}
	id := w.Body.String()

	req = httptest.NewRequest(http.MethodGet, "/api/v1/movie?id="+id, http.NoBody)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry catalog.Entry
	if err := json.NewDecoder(w.Body).Decode(&entry); err != nil {
		t.Fatalf("Failed to decode entry: %v", err)
	}
	if entry.Movie.Title != "Alien" || len(entry.Movie.Tags) != 1 || entry.Movie.Tags[0] != "scifi" {
		t.Errorf("Unexpected entry %+v", entry.Movie)
	}
}

func TestHandlerChainCompressesSearchResults(t *testing.T) {
	handler := newTestHandler(t)

	for i := 0; i < 40; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/movie", strings.NewReader(`{"title":"A reasonably long movie title"}`))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("Expected gzip response, got headers %v", w.Header())
	}
	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	var results []handlers.MovieListEntry
	if err := json.NewDecoder(gr).Decode(&results); err != nil {
		t.Fatalf("Failed to decode results: %v", err)
	}
	if len(results) != 40 {
		t.Errorf("Expected 40 results, got %d", len(results))
	}
}

func TestHandlerChainUnknownRoute(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/index.html", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown route, got %d", w.Code)
	}
}

func TestHandlerChainCORSPreflight(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/movie", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected preflight status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPatch {
		t.Errorf("Expected PATCH to be allowed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("Expected Content-Type to be allowed, got %q", got)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("Expected a request id on the preflight response")
	}
}

func TestHandlerChainCORSSimpleRequest(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/search", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Range") {
		t.Errorf("Expected Content-Range to be exposed, got %q", got)
	}
}

func TestHandlerChainCORSRestrictedOrigins(t *testing.T) {
	handler := newTestHandlerWithOrigins(t, []string{"https://app.example"})

	for _, tt := range []struct {
		origin string
		want   string
	}{
		{"https://app.example", "https://app.example"},
		{"https://other.example", ""},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/movie/tags", http.NoBody)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", tt.origin, w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("%s: expected Access-Control-Allow-Origin %q, got %q", tt.origin, tt.want, got)
		}
	}
}

func TestHandlerChainCORSDisabled(t *testing.T) {
	handler := newTestHandlerWithOrigins(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/movie", http.NoBody)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS headers, got Access-Control-Allow-Origin %q", got)
	}
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected the router to answer 405, got %d", w.Code)
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer(":0", http.NotFoundHandler())
	if srv.ReadHeaderTimeout != serverReadHeaderTimeout || srv.IdleTimeout != serverIdleTimeout {
		t.Errorf("Unexpected timeouts: header=%v idle=%v", srv.ReadHeaderTimeout, srv.IdleTimeout)
	}
	if srv.WriteTimeout != 0 {
		t.Errorf("Expected no write timeout for streaming downloads, got %v", srv.WriteTimeout)
	}

	metricsSrv := newMetricsServer(":0", http.NotFoundHandler())
	if metricsSrv.ReadTimeout != metricsReadTimeout || metricsSrv.WriteTimeout != metricsWriteTimeout || metricsSrv.IdleTimeout != metricsIdleTimeout {
		t.Errorf("Unexpected metrics timeouts: %v %v %v", metricsSrv.ReadTimeout, metricsSrv.WriteTimeout, metricsSrv.IdleTimeout)
	}
}

func TestMetricsServerRoutes(t *testing.T) {
	srv := newMetricsServer(":0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "metrics")
	}))

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Body.String() != "metrics" {
		t.Errorf("Expected metrics handler, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/movie", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected API routes to be absent, got %d", w.Code)
	}
}

func TestServeReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := newServer(ln.Addr().String(), http.NotFoundHandler())
	err = serve(srv, "HTTP server")
	if err == nil || !strings.Contains(err.Error(), "HTTP server") {
		t.Errorf("Expected listen error, got %v", err)
	}
}

func TestServeReturnsNilAfterShutdown(t *testing.T) {
	srv := newServer("127.0.0.1:0", http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- serve(srv, "HTTP server") }()

	// Shutdown before or after ListenAndServe both end in ErrServerClosed.
	time.Sleep(10 * time.Millisecond)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil after shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}
}

type countingUpdater struct {
	calls atomic.Int32
}

func (c *countingUpdater) UpdateDBMetrics() {
	c.calls.Add(1)
}

func TestRefreshDBMetrics(t *testing.T) {
	u := &countingUpdater{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		refreshDBMetrics(ctx, u, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for u.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if u.calls.Load() < 3 {
		t.Errorf("Expected repeated updates, got %d", u.calls.Load())
	}
}

func TestRouterListsAPIRoutes(t *testing.T) {
	idx := memory.New()
	store := blobstore.NewMemoryStore()
	pipeline := preview.New(idx, store, nil, preview.Config{})
	defer pipeline.Close()

	router := newRouter(handlers.New(idx, store, pipeline, "memory"))

	var paths bytes.Buffer
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if tpl, err := route.GetPathTemplate(); err == nil {
			paths.WriteString(tpl + "\n")
		}
		return nil
	})
	for _, want := range []string{"/health", "/api/v1/movie", "/api/v1/movie/search", "/api/v1/movie/preview/file"} {
		if !strings.Contains(paths.String(), want+"\n") {
			t.Errorf("Expected route %s, got:\n%s", want, paths.String())
		}
	}
}
