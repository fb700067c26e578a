package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/thumbflow/internal/text"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const thumbSuffix = "__thumb"

var (
	ErrDimensionsUnavailable = errors.New("image dimensions unavailable")
	ErrInvalidDimensions     = errors.New("invalid image dimensions")
	ErrInvalidSource         = errors.New("invalid image source")
	ErrEncode                = errors.New("encode image")
	ErrInvalidQuality        = errors.New("invalid encode quality")
	ErrRemoteSource          = errors.New("remote image sources are not supported")
	ErrBrandRequired         = errors.New("watermark brand text is required")
)

type Request struct {
	SourcePath string
	Brand      string
}

type Result struct {
	SourcePath   string
	OutputPath   string
	SourceWidth  int
	SourceHeight int
	Width        int
	Height       int
	Bytes        int
}

type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type Emitter interface {
	Emit(ctx context.Context, path string, data []byte) error
}

type Options struct {
	MaxKB        int
	MaxBox       BoundingBox
	StartQuality int
	FinalQuality int
	Watermark    WatermarkConfig
}

func DefaultOptions() Options {
	return Options{
		MaxKB:        1000,
		MaxBox:       BoundingBox{Width: 1024, Height: 1024},
		StartQuality: DefaultStartQuality,
		FinalQuality: 95,
		Watermark:    DefaultWatermarkConfig(),
	}
}

type Processor struct {
	fetcher     Fetcher
	codec       Codec
	compressor  *Compressor
	watermarker *Watermarker
	emitter     Emitter
	opts        Options
	logger      zerolog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
}

func NewLocalProcessor(opts Options, logger zerolog.Logger, metrics *Metrics) (*Processor, error) {
	renderer, err := text.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("build text renderer: %w", err)
	}
	return newProcessor(LocalFileFetcher{}, newCodec(), renderer, LocalFileEmitter{}, opts, logger, metrics), nil
}

func newProcessor(fetcher Fetcher, codec Codec, rasterizer Rasterizer, emitter Emitter, opts Options, logger zerolog.Logger, metrics *Metrics) *Processor {
	defaults := DefaultOptions()
	if opts.MaxBox.Width <= 0 || opts.MaxBox.Height <= 0 {
		opts.MaxBox = defaults.MaxBox
	}
	if opts.StartQuality == 0 {
		opts.StartQuality = defaults.StartQuality
	}
	if opts.FinalQuality == 0 {
		opts.FinalQuality = defaults.FinalQuality
	}

	return &Processor{
		fetcher:     fetcher,
		codec:       codec,
		compressor:  NewCompressor(codec, logger, metrics),
		watermarker: NewWatermarker(rasterizer, opts.Watermark),
		emitter:     emitter,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
		tracer:      otel.Tracer("thumbflow/pipeline"),
	}
}

// Process writes nothing unless every stage succeeds.
func (p *Processor) Process(ctx context.Context, req Request) (result Result, err error) {
	startedAt := time.Now()
	status := "failed"
	defer func() {
		p.metrics.observeRun(status, time.Since(startedAt).Seconds(), result.Bytes)
	}()

	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	span.SetAttributes(attribute.String("source.path", req.SourcePath))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
		}
	}()

	sourcePath := strings.TrimSpace(req.SourcePath)
	if sourcePath == "" {
		return Result{}, fmt.Errorf("%w: path is required", ErrInvalidSource)
	}
	brand := strings.TrimSpace(req.Brand)
	if brand == "" {
		return Result{}, ErrBrandRequired
	}

	var (
		data   []byte
		source Image
	)
	err = p.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		if data, err = p.fetcher.Fetch(ctx, sourcePath); err != nil {
			return err
		}
		source, err = p.codec.Decode(ctx, data)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	sourceSize := source.Size()
	p.logger.Info().Str("path", sourcePath).Str("dimensions", sourceSize.String()).Msg("image dimensions")

	var resized Image
	err = p.stage(ctx, "compress", func(ctx context.Context) error {
		box := p.opts.MaxBox
		compressed, err := p.compressor.Compress(ctx, source, CompressionRequest{
			MaxKB:        p.opts.MaxKB,
			MaxBox:       &box,
			StartQuality: p.opts.StartQuality,
		})
		if err != nil {
			return err
		}
		resized, err = p.codec.Decode(ctx, compressed)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	p.logger.Info().Str("dimensions", resized.Size().String()).Msg("resized image")

	var watermarked Image
	err = p.stage(ctx, "watermark", func(ctx context.Context) error {
		var err error
		watermarked, err = p.watermarker.Apply(ctx, resized, brand)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	p.logger.Info().Str("brand", brand).Msg("watermarked image")

	var thumbnail []byte
	err = p.stage(ctx, "encode", func(ctx context.Context) error {
		var err error
		thumbnail, err = p.codec.Encode(ctx, watermarked, p.opts.FinalQuality)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	outputPath := ThumbnailPath(sourcePath)
	p.logger.Info().Str("path", outputPath).Msg("saving thumbnail")
	err = p.stage(ctx, "emit", func(ctx context.Context) error {
		return p.emitter.Emit(ctx, outputPath, thumbnail)
	})
	if err != nil {
		return Result{}, err
	}

	finalSize := watermarked.Size()
	status = "succeeded"
	result = Result{
		SourcePath:   sourcePath,
		OutputPath:   outputPath,
		SourceWidth:  sourceSize.Width,
		SourceHeight: sourceSize.Height,
		Width:        finalSize.Width,
		Height:       finalSize.Height,
		Bytes:        len(thumbnail),
	}
	span.SetAttributes(
		attribute.String("output.path", outputPath),
		attribute.Int("output.bytes", len(thumbnail)),
	)
	return result, nil
}

func (p *Processor) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return fmt.Errorf("%s stage: %w", name, err)
	}
	return nil
}

// ThumbnailPath inserts the thumbnail suffix before the file extension:
// photo.jpg becomes photo__thumb.jpg.
func ThumbnailPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + thumbSuffix + ext
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	lower := strings.ToLower(strings.TrimSpace(path))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrRemoteSource, path)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidSource, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read input file %s: %v", ErrInvalidSource, path, err)
	}
	return data, nil
}

type LocalFileEmitter struct{}

func (LocalFileEmitter) Emit(ctx context.Context, path string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}
