package lines2d

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestRectanglesFromLine(t *testing.T) {
	left, right, ok := RectanglesFromLine(NewLine(10, 10, 30, 10), DefaultRectangleConfig())
	test.That(t, ok, test.ShouldBeTrue)
	expectCorners(t, left, Rectangle{{X: 10, Y: 10.5}, {X: 10, Y: 15.5}, {X: 30, Y: 10.5}, {X: 30, Y: 15.5}})
	expectCorners(t, right, Rectangle{{X: 10, Y: 9.5}, {X: 10, Y: 4.5}, {X: 30, Y: 9.5}, {X: 30, Y: 4.5}})

	// short lines get thin rectangles
	left, _, _ = RectanglesFromLine(NewLine(0, 0, 0, 4), DefaultRectangleConfig())
	test.That(t, left[1].X-left[0].X, test.ShouldAlmostEqual, -2)
}

func expectCorners(t *testing.T, actual, expected Rectangle) {
	t.Helper()
	for i := range expected {
		test.That(t, actual[i].X, test.ShouldAlmostEqual, expected[i].X, 1e-9)
		test.That(t, actual[i].Y, test.ShouldAlmostEqual, expected[i].Y, 1e-9)
	}
}

func TestPixelsInRectangleAxisAligned(t *testing.T) {
	// corners on the same rows trigger the small rotation
	pixels := PixelsInRectangle([]r2.Point{{X: 2, Y: 2}, {X: 2, Y: 5}, {X: 6, Y: 2}, {X: 6, Y: 5}})
	test.That(t, len(pixels), test.ShouldEqual, 20)
	seen := map[image.Point]bool{}
	for _, p := range pixels {
		test.That(t, p.Y, test.ShouldBeBetweenOrEqual, 2, 5)
		test.That(t, p.X, test.ShouldBeBetweenOrEqual, 1, 5)
		test.That(t, seen[p], test.ShouldBeFalse)
		seen[p] = true
	}
}

func TestRectanglesFromDegenerateLine(t *testing.T) {
	for _, l := range []Line{NewLine(10, 10, 10, 10), NewLine(100, 0, 100, 0), NewLine(5, 5, 5, 5+1e-9)} {
		_, _, ok := RectanglesFromLine(l, DefaultRectangleConfig())
		test.That(t, ok, test.ShouldBeFalse)
	}
	nan := math.NaN()
	test.That(t, PixelsInRectangle([]r2.Point{{X: nan, Y: nan}, {X: nan, Y: nan}, {X: nan, Y: nan}, {X: nan, Y: nan}}), test.ShouldBeEmpty)
	test.That(t, PixelsInRectangle([]r2.Point{{X: 0, Y: 0}, {X: 0, Y: 5}, {X: math.Inf(1), Y: 0}, {X: 5, Y: 5}}), test.ShouldBeEmpty)
}

func TestPixelsInRectangleTilted(t *testing.T) {
	left, right, _ := RectanglesFromLine(NewLine(20, 20, 40, 35), DefaultRectangleConfig())
	for _, rect := range []Rectangle{left, right} {
		pixels := rect.Pixels()
		test.That(t, len(pixels), test.ShouldBeGreaterThan, 50)
		seen := map[image.Point]bool{}
		for _, p := range pixels {
			test.That(t, seen[p], test.ShouldBeFalse)
			seen[p] = true
			test.That(t, p.X, test.ShouldBeBetweenOrEqual, 14, 46)
			test.That(t, p.Y, test.ShouldBeBetweenOrEqual, 14, 41)
		}
	}
	// the two patches lie on opposite sides of the line
	test.That(t, meanSide(left.Pixels()), test.ShouldBeGreaterThan, 0)
	test.That(t, meanSide(right.Pixels()), test.ShouldBeLessThan, 0)
}

// meanSide averages the cross product of the line direction with the offset of each pixel.
func meanSide(pixels []image.Point) float64 {
	dir := r2.Point{X: 20, Y: 15}
	sum := 0.
	for _, p := range pixels {
		sum += dir.Cross(r2.Point{X: float64(p.X) - 20, Y: float64(p.Y) - 20})
	}
	return sum / float64(len(pixels))
}

func TestPixelsInRectangleNeedsFourCorners(t *testing.T) {
	test.That(t, func() { PixelsInRectangle([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}) }, test.ShouldPanic)
}
