package lines2d

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestLineBasics(t *testing.T) {
	l := NewLine(1, 2, 4, 6)
	test.That(t, l.Coords(), test.ShouldResemble, [4]float64{1, 2, 4, 6})
	test.That(t, l.Length(), test.ShouldAlmostEqual, 5)
	test.That(t, l.Slope(), test.ShouldAlmostEqual, 4./3)
	test.That(t, l.Reversed(), test.ShouldResemble, NewLine(4, 6, 1, 2))
	test.That(t, l.Shift(r2.Point{X: 1, Y: -1}), test.ShouldResemble, NewLine(2, 1, 5, 5))
	test.That(t, l.IsZero(), test.ShouldBeFalse)
	test.That(t, Line{}.IsZero(), test.ShouldBeTrue)
	test.That(t, NewLine(3, 0, 3, 10).Slope(), test.ShouldEqual, 0)
	test.That(t, l.String(), test.ShouldEqual, "(1.00, 2.00) -> (4.00, 6.00)")
}

func TestAreLinesEqual(t *testing.T) {
	cfg := DefaultEqualityConfig()
	a := NewLine(0, 0, 10, 0)
	test.That(t, AreLinesEqual(a, NewLine(10.5, 0.2, 20, 0.3), cfg), test.ShouldBeTrue)
	test.That(t, AreLinesEqual(a, NewLine(20, 0.3, 10.5, 0.2), cfg), test.ShouldBeTrue)
	// parallel but too far apart
	test.That(t, AreLinesEqual(a, NewLine(12, 0, 20, 0), cfg), test.ShouldBeFalse)
	// touching but perpendicular
	test.That(t, AreLinesEqual(a, NewLine(10, 0, 10, 10), cfg), test.ShouldBeFalse)
	// degenerate
	test.That(t, AreLinesEqual(a, NewLine(0, 0, 0, 0), cfg), test.ShouldBeFalse)

	cfg.MaxSquaredDistance = 5
	test.That(t, AreLinesEqual(a, NewLine(12, 0, 20, 0), cfg), test.ShouldBeTrue)
}

func TestShrink(t *testing.T) {
	lines := []Line{NewLine(0, 0, 10, 0), NewLine(0, 0, 0, 1)}
	out := Shrink(lines, 0.8, 0.5)
	test.That(t, out[0].Start.X, test.ShouldAlmostEqual, 1)
	test.That(t, out[0].End.X, test.ShouldAlmostEqual, 9)
	test.That(t, out[1].Start.Y, test.ShouldAlmostEqual, 0.1)
	test.That(t, out[1].End.Y, test.ShouldAlmostEqual, 0.9)

	out = Shrink(lines, 0.8, 9)
	test.That(t, out, test.ShouldResemble, lines)

	test.That(t, func() { Shrink(lines, 0, 1) }, test.ShouldPanic)
}

func TestPerpendicularShifts(t *testing.T) {
	a, b := PerpendicularShifts(NewLine(5, 5, 5, 15), 20, 20)
	test.That(t, a, test.ShouldResemble, NewLine(6, 5, 6, 15))
	test.That(t, b, test.ShouldResemble, NewLine(4, 5, 4, 15))

	a, b = PerpendicularShifts(NewLine(0, 0, 19, 0), 20, 20)
	test.That(t, a, test.ShouldResemble, NewLine(0, 0, 19, 0))
	test.That(t, b, test.ShouldResemble, NewLine(0, 1, 19, 1))
}

func TestBresenham(t *testing.T) {
	pixels := Bresenham(image.Point{0, 0}, image.Point{3, 1})
	test.That(t, pixels, test.ShouldResemble, []image.Point{{0, 0}, {1, 0}, {2, 1}, {3, 1}})

	pixels = Bresenham(image.Point{3, 1}, image.Point{0, 0})
	test.That(t, len(pixels), test.ShouldEqual, 4)
	test.That(t, pixels[0], test.ShouldResemble, image.Point{3, 1})
	test.That(t, pixels[3], test.ShouldResemble, image.Point{0, 0})

	test.That(t, Bresenham(image.Point{2, 2}, image.Point{2, 2}), test.ShouldResemble, []image.Point{{2, 2}})

	pixels = PixelsOnLine(NewLine(0.7, 0.2, 0.9, 5.5))
	test.That(t, len(pixels), test.ShouldEqual, 6)
	for i, p := range pixels {
		test.That(t, p, test.ShouldResemble, image.Point{0, i})
	}
}
