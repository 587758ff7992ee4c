package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/facepunch/internal/adapters/http/api"
	"github.com/okian/facepunch/internal/adapters/http/swagger"
	"github.com/okian/facepunch/internal/adapters/storage"
	app "github.com/okian/facepunch/internal/app"
	"github.com/okian/facepunch/internal/config"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	// Punch and enrollment requests run a whole capture session.
	writeSlack = 5 * time.Second

	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	persister, err := openPersister(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open storage", logger.String("data_dir", cfg.DataDir), logger.Error(err))
		return
	}

	svc := app.New(serviceOptions(cfg, loggerInstance, persister)...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      max(cfg.SessionTimeout, cfg.EnrollmentTimeout) + writeSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// openPersister opens the file store under cfg.DataDir, or an in-memory
// store when no directory is configured.
func openPersister(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Persister, error) {
	if cfg.DataDir == "" {
		log.Warn(ctx, "data_dir is empty; attendance will not survive a restart")
		return storage.NewMemory(), nil
	}
	return storage.OpenFileStore(ctx, cfg.DataDir, storage.WithLogger(log.Named("storage")))
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, log logger.Logger, p storage.Persister) []app.Option {
	return []app.Option{
		app.WithLogger(log),
		app.WithPersister(p),
		app.WithTolerance(cfg.Tolerance),
		app.WithRequiredStreak(cfg.RequiredStreak),
		app.WithLookbackWindow(cfg.LookbackWindow),
		app.WithHistoryScanLimit(cfg.HistoryScanLimit),
		app.WithMinEnrollmentSamples(cfg.MinEnrollmentSamples),
		app.WithEmbeddingDim(cfg.EmbeddingDim),
		app.WithSessionTimeout(cfg.SessionTimeout),
		app.WithEnrollmentTimeout(cfg.EnrollmentTimeout),
		app.WithCaptureWorkers(cfg.CaptureWorkers),
		app.WithFrameQueueSize(cfg.FrameQueueSize),
		app.WithFrameStride(cfg.FrameStride),
	}
}

// newMux registers the docs and the business API.
func newMux(ctx context.Context, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the store and ledger gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// GetStats refreshes the user and ledger gauges as a side effect.
	_ = svc.GetStats()
}
