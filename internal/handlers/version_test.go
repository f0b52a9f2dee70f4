package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"movies-db/internal/startup"
)

// =============================================================================
// GetVersion Tests
// =============================================================================

func TestGetVersion(t *testing.T) {
	t.Parallel()

	h := &Handlers{}

	req := httptest.NewRequest(http.MethodGet, "/version", http.NoBody)
	w := httptest.NewRecorder()

	h.GetVersion(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Expected Cache-Control: no-cache, got %q", cc)
	}

	var response startup.BuildInfo
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response != startup.GetBuildInfo() {
		t.Errorf("Expected %+v, got %+v", startup.GetBuildInfo(), response)
	}
}
