package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/preview"
	"movies-db/internal/streaming"
)

// APIPrefix is the path prefix of the movie API.
const APIPrefix = "/api/v1"

type Handlers struct {
	index        catalog.Index
	store        blobstore.Store
	pipeline     *preview.Pipeline
	backend      string
	streamConfig streaming.Config
	memory       MemoryStatus
	startTime    time.Time
}

// MemoryStatus is the part of the memory monitor the health endpoint
// reports.
type MemoryStatus interface {
	IsPaused() bool
	GetStats() (current, limit int64, usage float64)
}

// New creates the handlers. backend is the catalog backend name reported
// by the health endpoint.
func New(index catalog.Index, store blobstore.Store, pipeline *preview.Pipeline, backend string) *Handlers {
	return &Handlers{
		index:        index,
		store:        store,
		pipeline:     pipeline,
		backend:      backend,
		streamConfig: streaming.DefaultConfig(),
		startTime:    time.Now(),
	}
}

// SetMemoryMonitor adds the memory monitor's state to the health report.
func (h *Handlers) SetMemoryMonitor(m MemoryStatus) {
	h.memory = m
}

// RegisterRoutes adds the health endpoints and the movie API to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	// Registered on r itself so a wrong method on a known path answers
	// 405; a subrouter reports those as 404.
	api := func(path string, f http.HandlerFunc, methods ...string) {
		r.HandleFunc(APIPrefix+path, f).Methods(methods...)
	}
	api("/movie", h.AddMovie, http.MethodPost)
	api("/movie", h.GetMovie, http.MethodGet)
	api("/movie", h.UpdateMovie, http.MethodPatch)
	api("/movie", h.DeleteMovie, http.MethodDelete)
	api("/movie/search", h.SearchMovies, http.MethodGet)
	api("/movie/tags", h.GetTagCounts, http.MethodGet)

	api("/movie/file", h.UploadMovie, http.MethodPost)
	api("/movie/file", h.DownloadMovie, http.MethodGet, http.MethodHead)
	api("/movie/preview/file", h.UploadPreview, http.MethodPost)
	api("/movie/preview/file", h.DownloadPreview, http.MethodGet, http.MethodHead)
	api("/movie/preview", h.RegeneratePreview, http.MethodPost)
}
