//go:build govips && cgo

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsCodec struct{}

func (govipsCodec) Decode(ctx context.Context, data []byte) (Image, error) {
	select {
	case <-ctx.Done():
		return Image{}, ctx.Err()
	default:
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return Image{}, fmt.Errorf("%w: decode source image: %v", ErrInvalidSource, err)
	}
	defer ref.Close()

	orientation := Orientation(ref.Orientation())
	if orientation < OrientationNormal || orientation > OrientationRotate270 {
		orientation = OrientationUnset
	}

	// Pixels cross into Go as lossless PNG. Orientation stays a tag and is
	// applied by Normalize.
	raw, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return Image{}, fmt.Errorf("%w: export pixels: %v", ErrInvalidSource, err)
	}
	pixels, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, fmt.Errorf("%w: read pixels: %v", ErrInvalidSource, err)
	}

	img := Image{Pixels: pixels, Orientation: orientation}
	if !img.Size().Valid() {
		return Image{}, fmt.Errorf("%w: empty image %s", ErrInvalidSource, img.Size())
	}
	return img, nil
}

func (govipsCodec) Encode(ctx context.Context, img Image, quality int) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validateQuality(quality); err != nil {
		return nil, err
	}
	if img.Pixels == nil || !img.Size().Valid() {
		return nil, fmt.Errorf("%w: empty pixel buffer", ErrEncode)
	}

	ref, err := loadGovipsImage(img.Pixels)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	params := vips.NewJpegExportParams()
	params.Quality = quality
	params.StripMetadata = true
	data, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", ErrEncode, err)
	}
	return data, nil
}

func loadGovipsImage(pixels image.Image) (*vips.ImageRef, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.NoCompression}
	if err := encoder.Encode(&buf, pixels); err != nil {
		return nil, fmt.Errorf("%w: stage pixels: %v", ErrEncode, err)
	}
	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: load pixels: %v", ErrEncode, err)
	}
	return ref, nil
}
