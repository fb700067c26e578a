package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	DefaultStartQuality = 95
	QualityStep         = 10
	MaxCompressAttempts = 3
)

// CompressionRequest drives one Compress call. Iteration counts attempts
// starting at 1; zero values for Iteration and StartQuality mean defaults.
type CompressionRequest struct {
	MaxKB        int
	Resize       *ResizeSpec
	MaxBox       *BoundingBox
	Iteration    int
	StartQuality int
}

func (r CompressionRequest) withDefaults() CompressionRequest {
	if r.Iteration < 1 {
		r.Iteration = 1
	}
	if r.StartQuality == 0 {
		r.StartQuality = DefaultStartQuality
	}
	return r
}

func AttemptQuality(startQuality, iteration int) int {
	if iteration < 1 {
		iteration = 1
	}
	quality := startQuality - QualityStep*(iteration-1)
	if quality < MinQuality {
		return MinQuality
	}
	return quality
}

type Compressor struct {
	codec   Codec
	logger  zerolog.Logger
	metrics *Metrics
}

func NewCompressor(codec Codec, logger zerolog.Logger, metrics *Metrics) *Compressor {
	return &Compressor{codec: codec, logger: logger, metrics: metrics}
}

// Compress returns the last attempt even if it is still over budget.
func (c *Compressor) Compress(ctx context.Context, img Image, req CompressionRequest) ([]byte, error) {
	req = req.withDefaults()
	if err := validateQuality(req.StartQuality); err != nil {
		return nil, err
	}
	if req.MaxKB < 0 {
		return nil, errors.New("max kb must not be negative")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img = Normalize(img)
	size, err := Resolve(img.Size(), req.Resize, req.MaxBox)
	if err != nil {
		return nil, fmt.Errorf("resolve dimensions: %w", err)
	}
	img = resizeTo(img, size)

	quality := AttemptQuality(req.StartQuality, req.Iteration)
	out, err := c.codec.Encode(ctx, img, quality)
	if err != nil {
		return nil, fmt.Errorf("encode attempt %d: %w", req.Iteration, err)
	}
	c.metrics.observeAttempt()

	sizeKB := float64(len(out)) / 1024
	c.logger.Debug().
		Int("iteration", req.Iteration).
		Int("quality", quality).
		Str("size", size.String()).
		Float64("kb", sizeKB).
		Msg("encoded attempt")

	if req.MaxKB == 0 || sizeKB <= float64(req.MaxKB) || req.Iteration >= MaxCompressAttempts {
		return out, nil
	}

	// Retries work from the previous attempt's bytes, not the original pixels.
	next, err := c.codec.Decode(ctx, out)
	if err != nil {
		return nil, fmt.Errorf("decode attempt %d: %w", req.Iteration, err)
	}
	return c.Compress(ctx, next, CompressionRequest{
		MaxKB:        req.MaxKB,
		Iteration:    req.Iteration + 1,
		StartQuality: req.StartQuality,
	})
}
