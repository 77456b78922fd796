package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"dossier/internal/platform/config"
	"dossier/internal/platform/httpserver"
	"dossier/internal/platform/logger"
	"dossier/internal/platform/metrics"
	"dossier/internal/profile/gateway"
	"dossier/internal/profile/handler"
	"dossier/internal/profile/photo"
	"dossier/internal/profile/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

// run wires dependencies and serves until ctx is cancelled. Business logic
// lives in the internal/profile packages.
func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(stdout, cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	tp, shutdownTracing, err := setupTracing(cfg.Tracing, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()

	legacyLoc, err := cfg.Legacy.Location()
	if err != nil {
		return err
	}

	slot, closeSlot, err := openSlot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s slot: %w", cfg.Storage.Backend, err)
	}
	defer closeSlot()

	gw := gateway.New(slot,
		gateway.WithLogger(log),
		gateway.WithMetrics(m),
		gateway.WithTracer(tp.Tracer("dossier/internal/profile/gateway")),
		gateway.WithLegacyLocation(legacyLoc),
	)
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
	}
	if cfg.Photo.Dir != "" {
		opts = append(opts, service.WithPhotoStore(photo.NewFileStore(cfg.Photo.Dir, photo.WithLogger(log))))
	}
	profiles := service.New(gw, opts...)

	if _, err := profiles.SweepPhotos(ctx); err != nil {
		log.WarnContext(ctx, "photo sweep failed", "error", err)
	}

	router := newRouter(log, m, reg, profiles, cfg)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting dossier",
			"addr", cfg.Server.Addr,
			"storage", cfg.Storage.Backend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.InfoContext(shutdownCtx, "shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newRouter(log *slog.Logger, m *metrics.Metrics, reg *prometheus.Registry, profiles handler.Service, cfg config.Config) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handler.New(profiles, log, m, cfg.Server.RequestTimeout).Register(r)
	return r
}
