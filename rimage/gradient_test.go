package rimage

import (
	"image"
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

// circleImage draws a white disc of the given radius on black.
func circleImage(width, height int, center image.Point, radius float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if math.Hypot(float64(x-center.X), float64(y-center.Y)) <= radius {
				img.SetGray(x, y, color.Gray{255})
			}
		}
	}
	return img
}

func TestSobelGradient(t *testing.T) {
	img := circleImage(300, 200, image.Point{150, 100}, 75)
	gradients := SobelGradient(img)
	test.That(t, gradients.Width(), test.ShouldEqual, 300)
	test.That(t, gradients.Height(), test.ShouldEqual, 200)
	test.That(t, gradients.MaxMagnitude(), test.ShouldBeGreaterThan, 0)

	// reminder: +x is right, +y is down, and gradients point from dark to bright.
	test.That(t, gradients.GetVec2D(225, 100).Direction(), test.ShouldAlmostEqual, math.Pi)
	test.That(t, gradients.GetVec2D(150, 175).Direction(), test.ShouldAlmostEqual, 3*math.Pi/2)
	test.That(t, gradients.GetVec2D(75, 100).Direction(), test.ShouldAlmostEqual, 0)
	test.That(t, gradients.GetVec2D(150, 25).Direction(), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, gradients.GetVec2D(75, 100).IsMostlyHorizontal(), test.ShouldBeTrue)
	test.That(t, gradients.GetVec2D(150, 25).IsMostlyHorizontal(), test.ShouldBeFalse)

	// flat regions and the outside of the field
	test.That(t, gradients.MagnitudeAt(150, 100), test.ShouldEqual, 0)
	test.That(t, gradients.MagnitudeAt(-1, 100), test.ShouldEqual, 0)
	test.That(t, gradients.InBounds(299, 199), test.ShouldBeTrue)
	test.That(t, gradients.InBounds(300, 199), test.ShouldBeFalse)

	mag := gradients.MagnitudeField()
	rows, cols := mag.Dims()
	test.That(t, rows, test.ShouldEqual, 200)
	test.That(t, cols, test.ShouldEqual, 300)
	test.That(t, mag.At(100, 75), test.ShouldEqual, gradients.GetVec2D(75, 100).Magnitude())

	pic := gradients.MagnitudePicture()
	test.That(t, pic.GrayAt(150, 100).Y, test.ShouldEqual, 0)
	test.That(t, pic.GrayAt(75, 100).Y, test.ShouldBeGreaterThan, 100)
	dirPic := gradients.DirectionPicture()
	test.That(t, dirPic.Bounds(), test.ShouldResemble, image.Rect(0, 0, 300, 200))
}

func TestVectorField2D(t *testing.T) {
	vf := MakeEmptyVectorField2D(4, 3)
	test.That(t, vf.MaxMagnitude(), test.ShouldEqual, 0)
	test.That(t, vf.MagnitudePicture().GrayAt(1, 1).Y, test.ShouldEqual, 0)
	vf.Set(1, 2, NewVec2D(3, -math.Pi/2))
	test.That(t, vf.Get(image.Point{1, 2}).Magnitude(), test.ShouldEqual, 3)
	test.That(t, vf.Get(image.Point{1, 2}).Direction(), test.ShouldAlmostEqual, 3*math.Pi/2)
	test.That(t, vf.MaxMagnitude(), test.ShouldEqual, 3)
}
