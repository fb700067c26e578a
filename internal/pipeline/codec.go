package pipeline

import (
	"context"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Codec converts between encoded bytes and Images. Output is always JPEG.
type Codec interface {
	Decode(ctx context.Context, data []byte) (Image, error)
	Encode(ctx context.Context, img Image, quality int) ([]byte, error)
}

const (
	MinQuality = 50
	MaxQuality = 100
)

func validateQuality(quality int) error {
	if quality < 1 || quality > MaxQuality {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, quality)
	}
	return nil
}

func resizeTo(img Image, size Dimensions) Image {
	if img.Size() == size {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img.Pixels, img.Pixels.Bounds(), xdraw.Src, nil)
	return Image{Pixels: dst, Orientation: img.Orientation}
}
