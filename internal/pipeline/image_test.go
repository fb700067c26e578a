package pipeline

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"
)

func TestNormalizeRotatesOrientationSix(t *testing.T) {
	src := solidImage(3, 2, color.NRGBA{A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	out := Normalize(Image{Pixels: src, Orientation: OrientationRotate90})
	if out.Orientation != OrientationNormal {
		t.Fatalf("expected orientation reset, got %d", out.Orientation)
	}
	if got := out.Size(); got != (Dimensions{Width: 2, Height: 3}) {
		t.Fatalf("expected 2x3 after rotation, got %s", got)
	}

	// 90° clockwise moves the top-left pixel to the top-right.
	r, _, _, _ := out.Pixels.At(1, 0).RGBA()
	if r>>8 != 255 {
		t.Fatalf("expected red pixel at top-right, got %v", out.Pixels.At(1, 0))
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for o := OrientationUnset; o <= OrientationRotate270; o++ {
		first := Normalize(Image{Pixels: gradientImage(6, 4), Orientation: o})
		second := Normalize(first)

		if second.Orientation != OrientationNormal {
			t.Fatalf("orientation %d: expected normal, got %d", o, second.Orientation)
		}
		if second.Pixels != first.Pixels {
			t.Fatalf("orientation %d: second normalize changed pixels", o)
		}
	}
}

func TestNormalizeKeepsDefaultOrientation(t *testing.T) {
	src := gradientImage(4, 4)
	out := Normalize(Image{Pixels: src, Orientation: OrientationNormal})
	if out.Pixels != image.Image(src) {
		t.Fatal("expected pixels untouched for default orientation")
	}
}

func TestStdlibCodecDecodeAppliesOrientation(t *testing.T) {
	plain := encodeJPEG(t, gradientImage(30, 20))

	tests := []struct {
		name string
		data []byte
		want Dimensions
	}{
		{"no tag", plain, Dimensions{Width: 30, Height: 20}},
		{"big-endian rotate 90", withOrientation(t, plain, OrientationRotate90, binary.BigEndian), Dimensions{Width: 20, Height: 30}},
		{"little-endian rotate 270", withOrientation(t, plain, OrientationRotate270, binary.LittleEndian), Dimensions{Width: 20, Height: 30}},
		{"little-endian rotate 180", withOrientation(t, plain, OrientationRotate180, binary.LittleEndian), Dimensions{Width: 30, Height: 20}},
		{"png", encodePNG(t, gradientImage(30, 20)), Dimensions{Width: 30, Height: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := stdlibCodec{}.Decode(testContext(t), tt.data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Orientation != OrientationNormal {
				t.Fatalf("expected upright image, got orientation %d", img.Orientation)
			}
			if got := img.Size(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if again := Normalize(img); again.Pixels != img.Pixels {
				t.Fatal("expected decoded image to be already normalized")
			}
		})
	}
}
