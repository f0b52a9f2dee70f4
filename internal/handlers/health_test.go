package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"movies-db/internal/catalog"
	"movies-db/internal/catalog/memory"
)

// pingingIndex is a memory index whose Ping fails with err.
type pingingIndex struct {
	catalog.Index
	err error
}

func (p pingingIndex) Ping(context.Context) error {
	return p.err
}

func TestHealthCheckStarting(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp HealthResponse
	decodeJSON(t, w, &resp)
	if resp.Status != statusStarting {
		t.Errorf("Expected status %q before the worker runs, got %q", statusStarting, resp.Status)
	}
	if !resp.Ready {
		t.Error("Expected ready to be true")
	}
	if resp.Backend != "memory" {
		t.Errorf("Expected backend memory, got %q", resp.Backend)
	}
	if resp.CatalogError != "" {
		t.Errorf("Expected no catalog error, got %q", resp.CatalogError)
	}
	if resp.GoVersion == "" || resp.NumCPU == 0 {
		t.Error("Expected system info to be populated")
	}
}

func TestHealthCheckHealthy(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.pipeline.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(5 * time.Second)
	for !s.pipeline.Status().Running {
		if time.Now().After(deadline) {
			t.Fatal("Pipeline worker did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := s.do(t, http.MethodGet, "/healthz", nil, "")
	var resp HealthResponse
	decodeJSON(t, w, &resp)
	if w.Code != http.StatusOK || resp.Status != statusHealthy {
		t.Errorf("Expected 200 %q, got %d %q", statusHealthy, w.Code, resp.Status)
	}
	if !resp.Preview.Running {
		t.Error("Expected preview.running to be true")
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	s := newTestServerWithIndex(t, pingingIndex{Index: memory.New(), err: errors.New("connection refused")})

	w := s.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}

	var resp HealthResponse
	decodeJSON(t, w, &resp)
	if resp.Status != statusDegraded || resp.Ready {
		t.Errorf("Expected degraded and not ready, got %q ready=%v", resp.Status, resp.Ready)
	}
	if resp.CatalogError != "connection refused" {
		t.Errorf("Expected catalog error to be reported, got %q", resp.CatalogError)
	}
}

// pausedMemory reports a monitor holding back preview generation.
type pausedMemory struct{}

func (pausedMemory) IsPaused() bool { return true }

func (pausedMemory) GetStats() (current, limit int64, usage float64) {
	return 900, 1000, 0.9
}

func TestHealthCheckReportsMemory(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, "")
	var resp HealthResponse
	decodeJSON(t, w, &resp)
	if resp.Memory != nil {
		t.Errorf("Expected no memory section without a monitor, got %+v", resp.Memory)
	}

	h := New(s.index, s.store, s.pipeline, "memory")
	h.SetMemoryMonitor(pausedMemory{})
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 while paused, got %d", w.Code)
	}
	resp = HealthResponse{}
	decodeJSON(t, w, &resp)
	if resp.Memory == nil {
		t.Fatal("Expected a memory section")
	}
	expected := MemoryHealth{Paused: true, UsageRatio: 0.9, HeapBytes: 900, LimitBytes: 1000}
	if *resp.Memory != expected {
		t.Errorf("Expected %+v, got %+v", expected, *resp.Memory)
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
	}{
		{"catalog reachable", nil, http.StatusOK, "ready"},
		{"catalog unreachable", errors.New("down"), http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServerWithIndex(t, pingingIndex{Index: memory.New(), err: tt.pingErr})

			w := s.do(t, http.MethodGet, "/readyz", nil, "")
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			var resp map[string]string
			decodeJSON(t, w, &resp)
			if resp["status"] != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, resp["status"])
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/livez", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["status"] != "alive" {
		t.Errorf("Expected status alive, got %q", resp["status"])
	}

	w = s.do(t, http.MethodHead, "/livez", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for HEAD, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body for HEAD, got %q", w.Body.String())
	}
}
