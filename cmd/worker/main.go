package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/thumbflow/internal/config"
	"github.com/dunamismax/thumbflow/internal/logger"
	"github.com/dunamismax/thumbflow/internal/pipeline"
	"github.com/dunamismax/thumbflow/internal/telemetry"
	"github.com/dunamismax/thumbflow/internal/worker"
)

func main() {
	defaultConfig := config.DefaultPath
	if v := os.Getenv("THUMB_CONFIG"); v != "" {
		defaultConfig = v
	}
	configPath := flag.String("config", defaultConfig, "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New(logger.LevelInfo, logger.FormatConsole, os.Stderr)
		log.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(logger.Level(cfg.Log.Level), cfg.Log.Format, os.Stdout).With().Str("service", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing.TraceConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	if err := pipeline.Startup(); err != nil {
		log.Fatal().Err(err).Msg("start image runtime")
	}
	defer pipeline.Shutdown()

	srv, err := worker.NewServer(log, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize worker")
	}

	log.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Str("queue", cfg.Queue.Name).
		Str("redis", cfg.Queue.RedisAddr).
		Str("codec", pipeline.CodecName()).
		Msg("starting worker")

	httpServer := &http.Server{
		Addr:         cfg.Metrics.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
			stop()
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown failed")
	}
}
