package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/quake-data-etl/internal/api"
	"github.com/couchcryptid/quake-data-etl/internal/app"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	wm, err := a.Store.Watermark(ctx)
	if err != nil {
		logger.Error("failed to read watermark", "error", err)
		os.Exit(1)
	}
	if !wm.Value.IsZero() {
		metrics.Watermark.Set(float64(wm.Value.Unix()))
	}
	logger.Info("store ready", "path", cfg.DBPath, "watermark", wm.Value, "watermark_version", wm.Version)

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Store, a.Coordinator, a.Store, logger)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewHandler(a.Store, logger), cfg.APICORSOrigins, cfg.APIRateLimit, logger)
	apiSrv := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP servers.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		logger.Info("api server starting", "addr", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
		}
	}()

	schedulerDone := make(chan struct{})
	if cfg.ScheduleEnabled {
		sched := pipeline.NewScheduler(a.Coordinator, cfg.ScheduleInterval, cfg.ScheduleLookbackDays, clockwork.NewRealClock(), logger)
		go func() {
			defer close(schedulerDone)
			if err := sched.Run(ctx); err != nil {
				logger.Error("scheduler error", "error", err)
			}
		}()
	} else {
		close(schedulerDone)
		logger.Info("scheduler disabled; runs are triggered via POST /runs")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
	if err := a.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
