package pipeline

import (
	"fmt"
	"image"
)

type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) Valid() bool {
	return d.Width >= 1 && d.Height >= 1
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

func dimensionsOf(img image.Image) Dimensions {
	if img == nil {
		return Dimensions{}
	}
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// ResizeSpec describes a requested size. A zero axis is unset and is
// inferred from the source aspect ratio.
type ResizeSpec struct {
	Width  int
	Height int
}

func Uniform(size int) *ResizeSpec {
	return &ResizeSpec{Width: size, Height: size}
}

func Exact(width, height int) *ResizeSpec {
	return &ResizeSpec{Width: width, Height: height}
}

func WidthOnly(width int) *ResizeSpec {
	return &ResizeSpec{Width: width}
}

func HeightOnly(height int) *ResizeSpec {
	return &ResizeSpec{Height: height}
}

type BoundingBox struct {
	Width  int
	Height int
}

func Square(size int) *BoundingBox {
	return &BoundingBox{Width: size, Height: size}
}

// Resolve clamps width first, then height on the width-adjusted value.
func Resolve(original Dimensions, resize *ResizeSpec, maxBox *BoundingBox) (Dimensions, error) {
	if resize != nil {
		if resize.Width < 0 || resize.Height < 0 {
			return Dimensions{}, fmt.Errorf("%w: resize %dx%d", ErrInvalidDimensions, resize.Width, resize.Height)
		}
		if resize.Width == 0 && resize.Height == 0 {
			resize = nil
		}
	}
	if resize == nil && maxBox == nil {
		return original, nil
	}

	candidate := original
	if resize != nil {
		switch {
		case resize.Width > 0 && resize.Height > 0:
			candidate = Dimensions{Width: resize.Width, Height: resize.Height}
		case resize.Width > 0:
			if !original.Valid() {
				return Dimensions{}, ErrDimensionsUnavailable
			}
			candidate = Dimensions{
				Width:  resize.Width,
				Height: floorMulDiv(original.Height, resize.Width, original.Width),
			}
		case resize.Height > 0:
			if !original.Valid() {
				return Dimensions{}, ErrDimensionsUnavailable
			}
			candidate = Dimensions{
				Width:  floorMulDiv(original.Width, resize.Height, original.Height),
				Height: resize.Height,
			}
		}
	}

	if maxBox != nil {
		if maxBox.Width < 1 || maxBox.Height < 1 {
			return Dimensions{}, fmt.Errorf("%w: bounding box %dx%d", ErrInvalidDimensions, maxBox.Width, maxBox.Height)
		}
		if !original.Valid() {
			return Dimensions{}, ErrDimensionsUnavailable
		}

		if candidate.Width <= 0 {
			candidate.Width = original.Width
		}
		if candidate.Height <= 0 {
			candidate.Height = original.Height
		}

		if candidate.Width > maxBox.Width {
			candidate.Height = floorMulDiv(candidate.Height, maxBox.Width, candidate.Width)
			candidate.Width = maxBox.Width
		}
		if candidate.Height > maxBox.Height {
			candidate.Width = floorMulDiv(candidate.Width, maxBox.Height, candidate.Height)
			candidate.Height = maxBox.Height
		}
	}

	if !candidate.Valid() {
		return Dimensions{}, fmt.Errorf("%w: resolved %s", ErrInvalidDimensions, candidate)
	}
	return candidate, nil
}

// floorMulDiv returns floor(a*b/c) for non-negative a, b and positive c.
func floorMulDiv(a, b, c int) int {
	return int(int64(a) * int64(b) / int64(c))
}
