package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "hostelcore/internal/adapters/http"
	"hostelcore/internal/adapters/roster"
	"hostelcore/internal/blob"
	"hostelcore/internal/config"
	"hostelcore/internal/core"
	"hostelcore/internal/infra/lock"
	"hostelcore/internal/jobs"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the allocation API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			zl, err := core.NewZapProductionLogger(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = zl.Sync() }()
			return serve(cmd.Context(), cfg, core.NewZapLogger(zl), nil)
		},
	}
}

// serve runs the API until ctx is canceled. When ready is non-nil the bound
// address is sent on it once the listener is open.
func serve(ctx context.Context, cfg *config.Config, logger core.Logger, ready chan<- string) error {
	metrics, metricsHandler, err := newMetrics(cfg.Metrics.Exporter)
	if err != nil {
		return err
	}

	store, err := core.OpenStorage(ctx, cfg.StorageConfig(), nil)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithDefaultPassword(cfg.Provisioning.DefaultPassword),
		core.WithStudentCount(cfg.Provisioning.StudentCount),
	}
	if cfg.Trace.JSONPath != "" {
		tracer, closer, err := core.OpenJSONLinesTracer(cfg.Trace.JSONPath)
		if err != nil {
			return err
		}
		defer func() { _ = closer.Close() }()
		opts = append(opts, core.WithTracer(tracer))
		logger.Info("operation tracing enabled", "path", cfg.Trace.JSONPath)
	}
	if cfg.Redis.Addr != "" {
		rc, err := lock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		opts = append(opts, core.WithLocker(lock.NewRedisLocker(rc, lock.WithLogger(logger))))
		logger.Info("redis locker enabled", "addr", cfg.Redis.Addr)
	}
	svc := core.NewService(store, opts...)

	blobs, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	if fs, ok := blobs.(*blob.Filesystem); ok && cfg.HTTP.BaseURL != "" {
		base, err := url.Parse(cfg.HTTP.BaseURL)
		if err != nil {
			return fmt.Errorf("http.base_url: %w", err)
		}
		fs.WithBaseURL(base.JoinPath("exports", "files"))
	}

	worker := roster.NewWorker(svc, blobs, roster.WithLogger(logger))
	worker.Start()
	runner := jobs.NewRunner(jobs.WithLogger(logger))

	srv := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Config{
			Service:    svc,
			Exports:    worker,
			Jobs:       runner,
			Blobs:      blobs,
			Metrics:    metricsHandler,
			AdminToken: cfg.Admin.Token,
			Logger:     logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}
	if cfg.Admin.Token == "" {
		logger.Warn("admin token not set, admin routes are unauthenticated")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", ln.Addr().String(), "storage", string(cfg.StorageConfig().Driver), "blob", string(blobs.Driver()))
		if ready != nil {
			ready <- ln.Addr().String()
		}
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			worker.Stop(shutdownCtx),
			runner.Stop(shutdownCtx),
		)
	})
	return g.Wait()
}

// newMetrics builds the operation recorder named by exporter together with
// the handler mounted on /metrics.
func newMetrics(exporter string) (core.MetricsRecorder, http.Handler, error) {
	if strings.EqualFold(exporter, config.MetricsExpvar) {
		rec := core.NewExpvarRecorder()
		return rec, rec, nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}
	return rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), nil
}
