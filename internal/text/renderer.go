// Package text rasterizes short labels into transparent images.
package text

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var ErrEmptyText = errors.New("text is empty")

// Style controls how a label is drawn. Opacity scales the alpha of Color.
type Style struct {
	Size    float64
	Color   color.NRGBA
	Opacity float64
}

// Renderer draws labels with the Go Bold typeface. It is safe for
// concurrent use; a face is created per call.
type Renderer struct {
	font *opentype.Font
}

func NewRenderer() (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// Render returns an image just large enough to hold label: the advance width
// by the ascent plus descent of the face.
func (r *Renderer) Render(label string, style Style) (*image.NRGBA, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyText
	}
	if style.Size <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", style.Size)
	}

	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    style.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()

	drawer := &font.Drawer{Face: face}
	width := drawer.MeasureString(label).Ceil()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	drawer.Dst = dst
	drawer.Src = image.NewUniform(color.NRGBA{
		R: style.Color.R,
		G: style.Color.G,
		B: style.Color.B,
		A: scaleAlpha(style.Color.A, style.Opacity),
	})
	drawer.Dot = fixed.P(0, ascent)
	drawer.DrawString(label)

	return dst, nil
}

func scaleAlpha(alpha uint8, opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(math.Round(float64(alpha) * opacity))
}
