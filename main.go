package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"movies-db/internal/catalog"
	"movies-db/internal/handlers"
	"movies-db/internal/logging"
	"movies-db/internal/mediaprobe"
	"movies-db/internal/memory"
	"movies-db/internal/metrics"
	"movies-db/internal/middleware"
	"movies-db/internal/preview"
	"movies-db/internal/startup"
)

// Server timeouts. Downloads stream whole movies, so the main server has
// no write timeout.
const (
	serverReadHeaderTimeout = 15 * time.Second
	serverIdleTimeout       = 60 * time.Second

	metricsReadTimeout  = 10 * time.Second
	metricsWriteTimeout = 10 * time.Second
	metricsIdleTimeout  = 30 * time.Second
)

func main() {
	startTime := time.Now()

	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	// Before any significant allocation.
	memory.ConfigureFromEnv()

	source := *configPath
	if source == "" {
		source = startup.FindConfigFile()
	}
	cfg, err := startup.LoadConfig(source)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	// Validated by LoadConfig.
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetLevel(level)

	startup.PrintStartupHeader()
	cfg.LogConfig(source)

	if err := run(cfg, startTime); err != nil {
		startup.LogFatal("%v", err)
	}
}

func run(cfg *startup.Config, startTime time.Time) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := startup.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		startup.LogShutdownStep("Closing catalog")
		if err := backend.Close(); err != nil {
			logging.Warn("Catalog close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Catalog closed")
		}
	}()

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion, backend.Name())
	metrics.InitializeMetrics(backend.Name())

	store, err := startup.OpenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	probe := mediaprobe.New(cfg.FFmpegDir)
	startup.LogMediaProbeInit(ctx, probe)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	startup.LogPreviewInit(cfg.Preview.MaxWidth)
	pipeline := preview.New(backend.Index, store, probe, preview.Config{
		MaxWidth: cfg.Preview.MaxWidth,
		Gate:     monitor,
	})

	collector := metrics.NewCollector(catalog.NewStatsProvider(backend.Index, pipeline.Pending), backend.DBPath, cfg.MetricsInterval)

	h := handlers.New(backend.Index, store, pipeline, backend.Name())
	h.SetMemoryMonitor(monitor)
	router := newRouter(h)
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	srv := newServer(":"+cfg.Port, newHandler(router, cfg.LogHealthChecks, cfg.CORSOrigins))
	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsSrv = newMetricsServer(":"+cfg.MetricsPort, h.MetricsHandler())
	}

	// The worker outlives the request context so queued jobs can finish
	// during the shutdown grace period.
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	workerDone := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(workerDone)
		return pipeline.Run(workerCtx)
	})
	g.Go(func() error { return serve(srv, "HTTP server") })
	if metricsSrv != nil {
		g.Go(func() error { return serve(metricsSrv, "Metrics server") })
	}
	g.Go(func() error {
		refreshDBMetrics(gctx, backend, cfg.MetricsInterval)
		return nil
	})

	collector.Start()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Port,
		MetricsPort:     cfg.MetricsPort,
		MetricsEnabled:  cfg.MetricsEnabled,
		Backend:         backend.Name(),
		StoreDir:        cfg.StoreDir,
		StartupDuration: time.Since(startTime),
	})

	g.Go(func() error {
		<-gctx.Done()
		reason := "server error"
		if ctx.Err() != nil {
			reason = "signal"
		}
		startup.LogShutdownInitiated(reason)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		startup.LogShutdownStep("Shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}

		if metricsSrv != nil {
			startup.LogShutdownStep("Shutting down metrics server")
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Metrics server shutdown error: %v", err)
			} else {
				startup.LogShutdownStepComplete("Metrics server stopped")
			}
		}

		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")

		startup.LogShutdownStep(fmt.Sprintf("Stopping preview worker (%d pending)", pipeline.Pending()))
		pipeline.Close()
		select {
		case <-workerDone:
			startup.LogShutdownStepComplete("Preview worker stopped")
		case <-shutdownCtx.Done():
			// Remaining entries are reconciled on the next start.
			cancelWorker()
			<-workerDone
			logging.Warn("Preview worker cancelled with %d jobs pending", pipeline.Pending())
		}
		return nil
	})

	err = g.Wait()
	startup.LogShutdownComplete()
	return err
}

// newRouter registers the API and installs the metrics middleware, which
// needs the matched route.
func newRouter(h *handlers.Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(router)
	return router
}

// newHandler wraps the router in request ids, access logging, CORS and
// compression, outermost first. CORS sits inside the logger so answered
// preflights are still logged.
func newHandler(router http.Handler, logHealthChecks bool, corsOrigins []string) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = logHealthChecks

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = corsOrigins

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = middleware.CORS(corsConfig)(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	return middleware.RequestID(handler)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		IdleTimeout:       serverIdleTimeout,
	}
}

func newMetricsServer(addr string, metricsHandler http.Handler) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", metricsHandler)
	return &http.Server{
		Addr:         addr,
		Handler:      serveMux,
		ReadTimeout:  metricsReadTimeout,
		WriteTimeout: metricsWriteTimeout,
		IdleTimeout:  metricsIdleTimeout,
	}
}

// serve runs srv until Shutdown. A failure to listen is returned so the
// errgroup starts the shutdown.
func serve(srv *http.Server, name string) error {
	logging.Debug("%s listening on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// dbMetricsUpdater is the part of startup.Backend refreshDBMetrics needs.
type dbMetricsUpdater interface {
	UpdateDBMetrics()
}

// refreshDBMetrics updates the connection gauges until ctx is done.
func refreshDBMetrics(ctx context.Context, backend dbMetricsUpdater, interval time.Duration) {
	backend.UpdateDBMetrics()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			backend.UpdateDBMetrics()
		case <-ctx.Done():
			return
		}
	}
}
