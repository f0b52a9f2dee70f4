package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/preview"
	"movies-db/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// pingTimeout bounds the catalog check of the health endpoints.
const pingTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Backend string `json:"backend"`

	CatalogError string         `json:"catalogError,omitempty"`
	Preview      preview.Status `json:"preview"`
	Memory       *MemoryHealth  `json:"memory,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// MemoryHealth is the memory monitor section of the health response.
// LimitBytes is 0 when no limit is configured.
type MemoryHealth struct {
	Paused     bool    `json:"paused"`
	UsageRatio float64 `json:"usageRatio"`
	HeapBytes  int64   `json:"heapBytes"`
	LimitBytes int64   `json:"limitBytes"`
}

func (h *Handlers) memoryHealth() *MemoryHealth {
	if h.memory == nil {
		return nil
	}
	current, limit, usage := h.memory.GetStats()
	return &MemoryHealth{
		Paused:     h.memory.IsPaused(),
		UsageRatio: usage,
		HeapBytes:  current,
		LimitBytes: limit,
	}
}

func (h *Handlers) pingCatalog(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return catalog.Ping(ctx, h.index)
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Backend:      h.backend,
		Preview:      h.pipeline.Status(),
		Memory:       h.memoryHealth(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch err := h.pingCatalog(r.Context()); {
	case err != nil:
		logging.Warn("Health check: catalog unreachable: %v", err)
		response.Ready = false
		response.Status = statusDegraded
		response.CatalogError = err.Error()
	case !response.Preview.Running:
		response.Status = statusStarting
	default:
		response.Status = statusHealthy
	}

	// Return 503 only if the catalog cannot serve requests
	status := http.StatusOK
	if !response.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the catalog answers
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingCatalog(r.Context()); err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
