package startup

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"movies-db/internal/catalog"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("MOVIES_DB_TEST_SET", "custom")
	t.Setenv("MOVIES_DB_TEST_EMPTY", "")

	if got := getEnv("MOVIES_DB_TEST_SET", "default"); got != "custom" {
		t.Errorf("Expected custom, got %q", got)
	}
	if got := getEnv("MOVIES_DB_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("Expected empty value to fall back to default, got %q", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"unset keeps default", "", true, true},
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"upper FALSE", "FALSE", true, false},
		{"invalid keeps default", "yes", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MOVIES_DB_TEST_BOOL", tt.envValue)
			if got := getEnvBool("MOVIES_DB_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.envValue, tt.defaultValue, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Routes
// =============================================================================

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", noop).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/movie", noop).Methods(http.MethodPost)
	api.HandleFunc("/movie", noop).Methods(http.MethodGet)
	api.HandleFunc("/movie/file", noop).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/anything", noop)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	expected := []RouteInfo{
		{Path: "/healthz", Methods: []string{"GET"}},
		{Path: "/api/v1/movie", Methods: []string{"POST", "GET"}},
		{Path: "/api/v1/movie/file", Methods: []string{"GET", "HEAD"}},
		{Path: "/anything", Methods: []string{"*"}},
	}
	if len(routes) != len(expected) {
		t.Fatalf("Expected %d routes, got %d: %+v", len(expected), len(routes), routes)
	}
	for i, want := range expected {
		got := routes[i]
		if got.Path != want.Path || strings.Join(got.Methods, ",") != strings.Join(want.Methods, ",") {
			t.Errorf("Route %d: expected %+v, got %+v", i, want, got)
		}
	}
}

// =============================================================================
// Backend and store construction
// =============================================================================

func TestOpenBackendMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMemory
	cfg.Cache.Size = 0

	b, err := OpenBackend(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("OpenBackend failed: %v", err)
	}
	defer b.Close()

	if b.Name() != BackendMemory {
		t.Errorf("Expected name memory, got %s", b.Name())
	}
	if b.DBPath != "" {
		t.Errorf("Expected no database path, got %s", b.DBPath)
	}
	if _, ok := b.Index.(*catalog.CachedIndex); ok {
		t.Error("Expected no cache when cache size is 0")
	}
	b.UpdateDBMetrics()
}

func TestOpenBackendSQLiteWithCache(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.RootDir = root
	cfg.DatabasePath = filepath.Join(root, "movies.db")

	b, err := OpenBackend(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("OpenBackend failed: %v", err)
	}
	defer b.Close()

	if b.DBPath != cfg.DatabasePath {
		t.Errorf("Expected database path %s, got %s", cfg.DatabasePath, b.DBPath)
	}
	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		t.Errorf("Expected database file to exist: %v", err)
	}
	if _, ok := b.Index.(*catalog.CachedIndex); !ok {
		t.Errorf("Expected cached index, got %T", b.Index)
	}

	id, err := b.Index.AddMovie(context.Background(), catalog.Movie{Title: "Heat"})
	if err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}
	if _, err := b.Index.GetMovie(context.Background(), id); err != nil {
		t.Errorf("GetMovie failed: %v", err)
	}
	if err := catalog.Ping(context.Background(), b.Index); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	b.UpdateDBMetrics()
}

func TestOpenStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreDir = filepath.Join(t.TempDir(), "nested", "movies")

	store, err := OpenStore(&cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if store.Root() != cfg.StoreDir {
		t.Errorf("Expected root %s, got %s", cfg.StoreDir, store.Root())
	}
	if info, err := os.Stat(cfg.StoreDir); err != nil || !info.IsDir() {
		t.Errorf("Expected store directory to be created: %v", err)
	}
}

func TestEnsureDirectoryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(path, "root"); err == nil {
		t.Error("Expected error for a path that is a regular file")
	}
}
