// Command server starts the Roadmap Generator HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/ai/openrouter"
	httpserver "github.com/jerwingubat/RoadMapGenerator/internal/adapter/httpserver"
	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/observability"
	"github.com/jerwingubat/RoadMapGenerator/internal/adapter/repo/jsonfile"
	"github.com/jerwingubat/RoadMapGenerator/internal/app"
	"github.com/jerwingubat/RoadMapGenerator/internal/config"
	"github.com/jerwingubat/RoadMapGenerator/internal/service/models"
	"github.com/jerwingubat/RoadMapGenerator/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Flat-file store
	store := jsonfile.New(cfg.RoadmapsFile)
	if err := store.Ping(context.Background()); err != nil {
		slog.Error("store location unusable", slog.Any("error", err))
		os.Exit(1)
	}

	// Provider model catalog
	catalog := models.NewService(cfg)

	// AI client with model fallback
	aicl := openrouter.New(cfg)

	// Usecases
	genSvc := usecase.NewGenerateService(cfg, aicl)
	roadmapSvc := usecase.NewRoadmapService(store)

	// HTTP server
	srv := httpserver.NewServer(cfg, genSvc, roadmapSvc, catalog, store.Ping, catalog.Ping)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
