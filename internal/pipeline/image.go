package pipeline

import (
	"image"

	"github.com/disintegration/imaging"
)

// Orientation is the EXIF orientation tag. Zero means the source carried no tag.
type Orientation int

const (
	OrientationUnset Orientation = iota
	OrientationNormal
	OrientationFlipH
	OrientationRotate180
	OrientationFlipV
	OrientationTranspose
	OrientationRotate90
	OrientationTransverse
	OrientationRotate270
)

// Stages never modify the Pixels of an Image they received.
type Image struct {
	Pixels      image.Image
	Orientation Orientation
}

func (i Image) Size() Dimensions {
	return dimensionsOf(i.Pixels)
}

func Normalize(img Image) Image {
	if img.Pixels == nil {
		return img
	}

	var pixels image.Image
	switch img.Orientation {
	case OrientationFlipH:
		pixels = imaging.FlipH(img.Pixels)
	case OrientationRotate180:
		pixels = imaging.Rotate180(img.Pixels)
	case OrientationFlipV:
		pixels = imaging.FlipV(img.Pixels)
	case OrientationTranspose:
		pixels = imaging.Transpose(img.Pixels)
	case OrientationRotate90:
		// Tag 6: stored rotated 90° counter-clockwise, display needs 90° clockwise.
		pixels = imaging.Rotate270(img.Pixels)
	case OrientationTransverse:
		pixels = imaging.Transverse(img.Pixels)
	case OrientationRotate270:
		pixels = imaging.Rotate90(img.Pixels)
	default:
		if img.Orientation == OrientationNormal {
			return img
		}
		return Image{Pixels: img.Pixels, Orientation: OrientationNormal}
	}

	return Image{Pixels: pixels, Orientation: OrientationNormal}
}
