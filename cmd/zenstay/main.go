// Command zenstay serves the hostel front desk API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"zenstay/internal/archive"
	"zenstay/internal/blob"
	"zenstay/internal/config"
	"zenstay/internal/core"
	"zenstay/internal/events"
	"zenstay/internal/httpapi"
	"zenstay/internal/jobs"
	"zenstay/internal/logging"
	"zenstay/internal/occupancy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	zl, err := logging.New(cfg.Log.Level, cfg.Log.Format, "zenstay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logging.Core(zl)); err != nil {
		zl.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger core.Logger) error {
	if logger == nil {
		logger = logging.Core(nil)
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return err
	}

	hub := events.NewHub(logger, originAllowed(cfg.HTTP.CORSOrigins))
	defer hub.Close()
	notifier := events.Fanout{hub}
	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Close() }()
		notifier = append(notifier, nc)
		logger.Info("publishing notifications to NATS", "url", cfg.NATS.URL)
	}

	policy := occupancy.Strict()
	if !cfg.Strict {
		policy = occupancy.Lenient()
	}
	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewLogTracer(logger, 0)),
		core.WithAuditRecorder(core.LogAuditRecorder{Logger: logger}),
		core.WithNotifier(notifier),
		core.WithPolicy(policy),
	)
	if res, err := svc.Verify(ctx); err != nil {
		return fmt.Errorf("verify state: %w", err)
	} else if len(res.Violations) > 0 {
		logger.Warn("loaded state has rule violations", "count", len(res.Violations), "blocking", res.HasBlocking())
	}

	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	runner := jobs.NewRunner(svc, archive.New(blobs), cfg.Schedule.ArchiveKeep, logger)
	scheduler := cron.New(cron.WithLocation(time.UTC))
	if err := runner.Schedule(scheduler, cfg.Schedule.ArchiveCron, cfg.Schedule.OvertimeCron); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(svc,
			httpapi.WithLogger(logger),
			httpapi.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
			httpapi.WithNotificationStream(hub),
			httpapi.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
			httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
		),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Driver, "blob", blobs.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func originAllowed(origins []string) func(string) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(origin string) bool { return slices.Contains(origins, origin) }
}
