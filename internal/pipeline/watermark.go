package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/thumbflow/internal/text"
)

type Rasterizer interface {
	Render(label string, style text.Style) (*image.NRGBA, error)
}

type WatermarkConfig struct {
	BadgeWidth   int
	BadgeHeight  int
	TileWidth    int
	TileHeight   int
	FontSize     int
	BadgeOpacity float64
	TileOpacity  float64
}

func DefaultWatermarkConfig() WatermarkConfig {
	return WatermarkConfig{
		BadgeWidth:   160,
		BadgeHeight:  72,
		TileWidth:    200,
		TileHeight:   200,
		FontSize:     64,
		BadgeOpacity: 0.3,
		TileOpacity:  0.4,
	}
}

var (
	badgeTextColor = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	tileTextColor  = color.NRGBA{R: 0x77, G: 0x77, B: 0x77, A: 0xFF}
)

type Watermarker struct {
	rasterizer Rasterizer
	cfg        WatermarkConfig
}

func NewWatermarker(rasterizer Rasterizer, cfg WatermarkConfig) *Watermarker {
	defaults := DefaultWatermarkConfig()
	if cfg.BadgeWidth <= 0 || cfg.BadgeHeight <= 0 {
		cfg.BadgeWidth, cfg.BadgeHeight = defaults.BadgeWidth, defaults.BadgeHeight
	}
	if cfg.TileWidth <= 0 || cfg.TileHeight <= 0 {
		cfg.TileWidth, cfg.TileHeight = defaults.TileWidth, defaults.TileHeight
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = defaults.FontSize
	}
	if cfg.BadgeOpacity <= 0 {
		cfg.BadgeOpacity = defaults.BadgeOpacity
	}
	if cfg.TileOpacity <= 0 {
		cfg.TileOpacity = defaults.TileOpacity
	}
	return &Watermarker{rasterizer: rasterizer, cfg: cfg}
}

func (w *Watermarker) Apply(ctx context.Context, img Image, label string) (Image, error) {
	size := img.Size()
	if !size.Valid() {
		return Image{}, ErrDimensionsUnavailable
	}

	select {
	case <-ctx.Done():
		return Image{}, ctx.Err()
	default:
	}

	badge, err := w.layer(label,
		Dimensions{Width: w.cfg.BadgeWidth, Height: w.cfg.BadgeHeight},
		color.NRGBA{A: opacityToAlpha(w.cfg.BadgeOpacity)},
		text.Style{Size: float64(w.cfg.FontSize), Color: badgeTextColor, Opacity: 1},
	)
	if err != nil {
		return Image{}, fmt.Errorf("build badge layer: %w", err)
	}

	tile, err := w.layer(label,
		Dimensions{Width: w.cfg.TileWidth, Height: w.cfg.TileHeight},
		color.NRGBA{},
		text.Style{Size: float64(w.cfg.FontSize), Color: tileTextColor, Opacity: w.cfg.TileOpacity},
	)
	if err != nil {
		return Image{}, fmt.Errorf("build tile layer: %w", err)
	}

	bounds := image.Rect(0, 0, size.Width, size.Height)
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img.Pixels, img.Pixels.Bounds().Min, draw.Src)

	badgeAt := SoutheastOffset(size, dimensionsOf(badge))
	draw.Draw(dst, badge.Bounds().Add(badgeAt), badge, image.Point{}, draw.Over)

	// Tiles go on last and cover the badge where they overlap.
	tileSize := dimensionsOf(tile)
	for _, y := range TileOrigins(size.Height, tileSize.Height) {
		for _, x := range TileOrigins(size.Width, tileSize.Width) {
			draw.Draw(dst, tile.Bounds().Add(image.Pt(x, y)), tile, image.Point{}, draw.Over)
		}
	}

	return Image{Pixels: dst, Orientation: img.Orientation}, nil
}

// layer renders label, fits it inside min(box, 2*fontSize x fontSize) and
// centers it on a box-sized canvas filled with background.
func (w *Watermarker) layer(label string, box Dimensions, background color.NRGBA, style text.Style) (*image.NRGBA, error) {
	glyphs, err := w.rasterizer.Render(label, style)
	if err != nil {
		return nil, err
	}

	limit := Dimensions{
		Width:  min(box.Width, 2*w.cfg.FontSize),
		Height: min(box.Height, w.cfg.FontSize),
	}
	fit := FitInside(dimensionsOf(glyphs), limit)

	var content image.Image = glyphs
	if fit != dimensionsOf(glyphs) {
		content = imaging.Resize(glyphs, fit.Width, fit.Height, imaging.Lanczos)
	}

	canvas := imaging.New(box.Width, box.Height, background)
	return imaging.Overlay(canvas, content, CenterOffset(box, fit), 1.0), nil
}

// FitInside never upscales.
func FitInside(src, limit Dimensions) Dimensions {
	if src.Width <= limit.Width && src.Height <= limit.Height {
		return src
	}

	var out Dimensions
	if int64(src.Width)*int64(limit.Height) >= int64(src.Height)*int64(limit.Width) {
		out = Dimensions{Width: limit.Width, Height: floorMulDiv(src.Height, limit.Width, src.Width)}
	} else {
		out = Dimensions{Width: floorMulDiv(src.Width, limit.Height, src.Height), Height: limit.Height}
	}
	out.Width = max(out.Width, 1)
	out.Height = max(out.Height, 1)
	return out
}

func CenterOffset(outer, inner Dimensions) image.Point {
	return image.Pt((outer.Width-inner.Width)/2, (outer.Height-inner.Height)/2)
}

func SoutheastOffset(outer, inner Dimensions) image.Point {
	return image.Pt(outer.Width-inner.Width, outer.Height-inner.Height)
}

// TileOrigins lists the start positions of tiles of the given length along
// one axis, aligned so that one tile sits exactly in the middle.
func TileOrigins(canvas, tile int) []int {
	if canvas <= 0 || tile <= 0 {
		return nil
	}

	start := ((canvas - tile) / 2) % tile
	if start > 0 {
		start -= tile
	}

	origins := make([]int, 0, canvas/tile+2)
	for pos := start; pos < canvas; pos += tile {
		origins = append(origins, pos)
	}
	return origins
}

func opacityToAlpha(opacity float64) uint8 {
	if opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 0xFF
	}
	return uint8(math.Round(opacity * 0xFF))
}
