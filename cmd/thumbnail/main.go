// Command thumbnail writes a resized, size-capped and watermarked JPEG next
// to the given image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dunamismax/thumbflow/internal/config"
	"github.com/dunamismax/thumbflow/internal/id"
	"github.com/dunamismax/thumbflow/internal/logger"
	"github.com/dunamismax/thumbflow/internal/pipeline"
	"github.com/dunamismax/thumbflow/internal/queue"
	"github.com/dunamismax/thumbflow/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: thumbnail [flags] <image-path>\n\nflags:\n")
		fs.PrintDefaults()
	}

	defaultConfig := config.DefaultPath
	if v := os.Getenv("THUMB_CONFIG"); v != "" {
		defaultConfig = v
	}
	configPath := fs.String("config", defaultConfig, "path to the TOML config file")
	enqueue := fs.Bool("enqueue", false, "enqueue a task for the worker instead of processing here")
	metricsFile := fs.String("metrics-file", "", "write Prometheus metrics in text format to this file after the run")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	sourcePath := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New(logger.LevelInfo, logger.FormatConsole, stderr)
		log.Error().Err(err).Msg("load config")
		return exitError
	}
	log := logger.New(logger.Level(cfg.Log.Level), cfg.Log.Format, stderr)

	traceCfg := cfg.Tracing.TraceConfig()
	traceCfg.Writer = stderr
	shutdownTracing, err := telemetry.SetupTracing(ctx, traceCfg, log)
	if err != nil {
		log.Error().Err(err).Msg("setup tracing")
		return exitError
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	if *enqueue {
		return enqueueRun(ctx, cfg, log, sourcePath)
	}

	if err := pipeline.Startup(); err != nil {
		log.Error().Err(err).Msg("start image runtime")
		return exitError
	}
	defer pipeline.Shutdown()

	registry := prometheus.NewRegistry()
	processor, err := pipeline.NewLocalProcessor(cfg.Thumbnail.Options(), log, pipeline.NewMetrics(registry))
	if err != nil {
		log.Error().Err(err).Msg("initialize pipeline")
		return exitError
	}
	log.Debug().Str("codec", pipeline.CodecName()).Msg("pipeline ready")

	result, err := processor.Process(ctx, pipeline.Request{SourcePath: sourcePath, Brand: cfg.Brand})

	if *metricsFile != "" {
		if werr := prometheus.WriteToTextfile(*metricsFile, registry); werr != nil {
			log.Warn().Err(werr).Str("path", *metricsFile).Msg("write metrics file")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("path", sourcePath).Msg("thumbnail failed")
		return exitError
	}

	log.Info().
		Str("output", result.OutputPath).
		Int("width", result.Width).
		Int("height", result.Height).
		Int("bytes", result.Bytes).
		Msg("done")
	return exitOK
}

func enqueueRun(ctx context.Context, cfg config.Config, log zerolog.Logger, sourcePath string) int {
	absPath, err := filepath.Abs(sourcePath)
	if err != nil {
		log.Error().Err(err).Str("path", sourcePath).Msg("resolve source path")
		return exitError
	}

	client := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("queue client close error")
		}
	}()

	info, err := client.EnqueueGenerateThumbnail(ctx, queue.GenerateThumbnailPayload{
		RunID:       id.New(),
		SourcePath:  absPath,
		Brand:       cfg.Brand,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("enqueue thumbnail")
		return exitError
	}

	log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Str("path", absPath).Msg("thumbnail enqueued")
	return exitOK
}
