package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/thumbflow/internal/config"
	"github.com/dunamismax/thumbflow/internal/logger"
	"github.com/dunamismax/thumbflow/internal/pipeline"
	"github.com/dunamismax/thumbflow/internal/queue"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusRejected  = "rejected"
)

type thumbnailer interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Server struct {
	logger    zerolog.Logger
	server    *asynq.Server
	processor thumbnailer
	metrics   *metrics
	tracer    trace.Tracer
}

func NewServer(log zerolog.Logger, cfg config.Config) (*Server, error) {
	m := newMetrics()

	processor, err := pipeline.NewLocalProcessor(cfg.Thumbnail.Options(), log, pipeline.NewMetrics(m.registry))
	if err != nil {
		return nil, fmt.Errorf("initialize pipeline processor: %w", err)
	}

	asynqLevel := asynq.InfoLevel
	if logger.ToZerolog(logger.Level(cfg.Log.Level)) == zerolog.DebugLevel {
		asynqLevel = asynq.DebugLevel
	}

	s := &Server{
		logger: log,
		server: asynq.NewServer(
			cfg.Queue.RedisClientOpt(),
			asynq.Config{
				Concurrency: cfg.Worker.Concurrency,
				Queues: map[string]int{
					cfg.Queue.Name: 1,
				},
				Logger:          asynqLogger{logger: log.With().Str("component", "asynq").Logger()},
				LogLevel:        asynqLevel,
				ShutdownTimeout: cfg.Worker.ShutdownTimeout,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					log.Error().
						Err(err).
						Str("type", task.Type()).
						Int("retry", retried).
						Int("max_retry", maxRetry).
						Msg("task failed")
				}),
			},
		),
		processor: processor,
		metrics:   m,
		tracer:    otel.Tracer("thumbflow/worker"),
	}
	return s, nil
}

func (s *Server) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeGenerateThumbnail, s.handleGenerateThumbnail)
	return mux
}

func (s *Server) Start() error {
	return s.server.Start(s.mux())
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}

// Handler serves /metrics and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Server) handleGenerateThumbnail(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := statusFailed
	defer func() {
		s.metrics.taskDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.tasksTotal.WithLabelValues(outcome).Inc()
	}()

	payload, err := queue.ParseGenerateThumbnailPayload(task)
	if err != nil {
		outcome = statusRejected
		return fmt.Errorf("parse payload: %w: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.generate_thumbnail", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("run.id", payload.RunID),
		attribute.String("source.path", payload.SourcePath),
	)
	defer span.End()

	s.metrics.activeTasks.Inc()
	defer s.metrics.activeTasks.Dec()

	log := s.logger.With().Str("run_id", payload.RunID).Str("path", payload.SourcePath).Logger()
	log.Info().Time("requested_at", payload.RequestedAt).Msg("generating thumbnail")

	result, err := s.processor.Process(ctx, pipeline.Request{
		SourcePath: payload.SourcePath,
		Brand:      payload.Brand,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		if permanent(err) {
			outcome = statusRejected
			return fmt.Errorf("run pipeline: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("run pipeline: %w", err)
	}

	log.Info().
		Str("output", result.OutputPath).
		Int("width", result.Width).
		Int("height", result.Height).
		Int("bytes", result.Bytes).
		Msg("thumbnail written")
	s.metrics.pixelsProcessedTotal.Add(float64(result.SourceWidth * result.SourceHeight))
	s.metrics.bytesWrittenTotal.Add(float64(result.Bytes))

	outcome = statusSucceeded
	span.SetStatus(codes.Ok, "processed")
	return nil
}

// permanent reports whether retrying err cannot succeed without a new
// source file or request.
func permanent(err error) bool {
	for _, target := range []error{
		pipeline.ErrInvalidSource,
		pipeline.ErrRemoteSource,
		pipeline.ErrBrandRequired,
		pipeline.ErrInvalidDimensions,
		pipeline.ErrDimensionsUnavailable,
		pipeline.ErrInvalidQuality,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
