package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

type stdlibCodec struct{}

func (stdlibCodec) Decode(ctx context.Context, data []byte) (Image, error) {
	select {
	case <-ctx.Done():
		return Image{}, ctx.Err()
	default:
	}

	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty input", ErrInvalidSource)
	}

	pixels, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("%w: decode source image: %v", ErrInvalidSource, err)
	}
	img := Image{Pixels: pixels, Orientation: OrientationNormal}
	if !img.Size().Valid() {
		return Image{}, fmt.Errorf("%w: empty image %s", ErrInvalidSource, img.Size())
	}
	return img, nil
}

func (stdlibCodec) Encode(ctx context.Context, img Image, quality int) ([]byte, error) {
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

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.Pixels, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
