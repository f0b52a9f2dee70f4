package startup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"movies-db/internal/logging"
	"movies-db/internal/mediaprobe"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo is one registered path with every method routed on it.
type RouteInfo struct {
	Path    string
	Methods []string
}

// PrintStartupHeader writes the banner and the system information section.
func PrintStartupHeader() {
	printBanner()
	logSystemInfo()
}

// LogMediaProbeInit checks the ffmpeg binaries. A failed check is only a
// warning: the server still runs, but previews will fail until the
// binaries are available.
func LogMediaProbeInit(ctx context.Context, probe *mediaprobe.FFmpeg) bool {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA PROBE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Debug("  ffmpeg:  %s", probe.FFmpegPath())
	logging.Debug("  ffprobe: %s", probe.FFprobePath())

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := probe.Check(ctx); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Preview generation will fail until ffmpeg and ffprobe are available")
		return false
	}
	logging.Info("  [OK] FFmpeg is available")
	return true
}

// LogPreviewInit logs preview pipeline settings.
func LogPreviewInit(maxWidth int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PREVIEW PIPELINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if maxWidth > 0 {
		logging.Info("  Preview size bound: %dx%d", maxWidth, maxWidth)
	} else {
		logging.Info("  Preview size bound: none (frames stored as extracted)")
	}
	logging.Info("  Starting preview worker...")
}

// GetRoutes lists the paths registered on router in registration order.
// Routes sharing a path template are merged; a route without a method
// matcher is listed with "*".
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo
	byPath := make(map[string]int)

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			// subrouter prefixes without a handler of their own
			return nil
		}
		if route.GetHandler() == nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		i, ok := byPath[path]
		if !ok {
			i = len(routes)
			byPath[path] = i
			routes = append(routes, RouteInfo{Path: path})
		}
		routes[i].Methods = append(routes[i].Methods, methods...)
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the route table at debug level and the access log
// settings.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Info("  %d routes registered", len(routes))
	for _, route := range routes {
		logging.Debug("    %-24s %s", strings.Join(route.Methods, ","), route.Path)
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig is what LogServerStarted reports.
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	Backend         string
	StoreDir        string
	StartupDuration time.Duration
}

// LogServerStarted logs the endpoints once both servers are listening.
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED in %v", config.StartupDuration.Round(time.Millisecond))
	logging.Info("------------------------------------------------------------")
	logging.Info("  Catalog:    %s", config.Backend)
	logging.Info("  Blob store: %s", config.StoreDir)
	logging.Info("  API:        http://0.0.0.0:%s/api/v1/movie", config.Port)
	logging.Info("  Health:     http://0.0.0.0:%s/health", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:    http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:    DISABLED")
	}
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
  __  __  _____   _____ ___ ___     ___  ___
 |  \/  |/ _ \ \ / /_ _| __/ __|___|   \| _ )
 | |\/| | (_) \ V / | || _|\__ \___| |) | _ \
 |_|  |_|\___/ \_/ |___|___|___/   |___/|___/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "store" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			slots := 0
			for _, e := range entries {
				if e.IsDir() {
					slots++
				}
			}
			logging.Debug("    Contents: %d movie slots", slots)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}
