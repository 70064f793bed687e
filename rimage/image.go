// Package rimage holds the image helpers shared by the 2D and 3D line detectors: file IO,
// grayscale and depth conversions, gradients and overlay drawing.
package rimage

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ReadImageFromFile decodes the image at path without converting its color model, so 16 bit
// depth PNGs stay 16 bit.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// WriteImageToFile encodes img as PNG or JPEG depending on the extension of path.
func WriteImageToFile(path string, img image.Image) error {
	var encoder imgio.Encoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		encoder = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(95)
	default:
		return errors.Errorf("unsupported image extension %q", ext)
	}
	return errors.Wrapf(imgio.Save(path, img, encoder), "cannot write image %q", path)
}

// ToGray returns the luminance of img as an 8 bit grayscale image with origin (0, 0).
func ToGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	nrgba := imaging.Grayscale(img)
	bounds := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			// all three channels hold the luminance
			gray.Pix[y*gray.Stride+x] = nrgba.Pix[y*nrgba.Stride+4*x]
		}
	}
	return gray
}

// Blur applies a gaussian blur with the given sigma. A non positive sigma returns the image unchanged.
func Blur(img *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return img
	}
	return ToGray(blur.Gaussian(img, sigma))
}

// Resize scales img by factor using a gaussian resampling filter.
func Resize(img *image.Gray, factor float64) *image.Gray {
	if factor == 1 {
		return img
	}
	bounds := img.Bounds()
	w := int(math.Round(float64(bounds.Dx()) * factor))
	h := int(math.Round(float64(bounds.Dy()) * factor))
	return ToGray(imaging.Resize(img, w, h, imaging.Gaussian))
}

// DepthToGray scales raw depth values by scale and saturates them to 8 bit, which makes depth
// discontinuities visible to the 2D line detectors.
func DepthToGray(depth *image.Gray16, scale float64) *image.Gray {
	bounds := depth.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			v := float64(depth.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) * scale
			gray.SetGray(x, y, color.Gray{uint8(math.Min(math.Round(v), 255))})
		}
	}
	return gray
}
