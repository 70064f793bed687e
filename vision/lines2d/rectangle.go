package lines2d

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/linedetection/utils"
)

const (
	// equalHeightRotationDeg is the rotation applied to a rectangle with two corners on the same row.
	equalHeightRotationDeg = 0.1
	// minRectangleLineLength is the length under which a line has no sides to sample.
	minRectangleLineLength = 1e-6
)

// RectangleConfig sizes the patches sampled next to a line.
type RectangleConfig struct {
	// Offset is the distance in pixels between the line and the near side of a rectangle.
	Offset float64 `json:"rectangle_offset_pixels"`
	// MaxRelativeSize bounds the width of a rectangle relative to the line length.
	MaxRelativeSize float64 `json:"max_relative_rect_size"`
	// MaxAbsoluteSize bounds the width of a rectangle in pixels.
	MaxAbsoluteSize float64 `json:"max_absolute_rect_size"`
}

// DefaultRectangleConfig returns the rectangle sizes used by the line detector.
func DefaultRectangleConfig() RectangleConfig {
	return RectangleConfig{Offset: 0.5, MaxRelativeSize: 0.5, MaxAbsoluteSize: 5}
}

// Rectangle is given by its four corners, in any order.
type Rectangle [4]r2.Point

// Pixels returns the pixels covered by the rectangle.
func (r Rectangle) Pixels() []image.Point {
	return PixelsInRectangle(r[:])
}

// RectanglesFromLine returns the patches on the left and on the right of the line. Both have a
// side parallel to the line at Offset pixels from it and extend away from the line by
// min(MaxAbsoluteSize, length * MaxRelativeSize) pixels. It returns false for a line too short
// to have a direction.
func RectanglesFromLine(l Line, cfg RectangleConfig) (Rectangle, Rectangle, bool) {
	dir := l.Direction()
	norm := dir.Norm()
	if norm < minRectangleLineLength || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return Rectangle{}, Rectangle{}, false
	}
	size := math.Min(cfg.MaxAbsoluteSize, norm*cfg.MaxRelativeSize)
	goLeft := r2.Point{X: -dir.Y, Y: dir.X}
	goRight := r2.Point{X: dir.Y, Y: -dir.X}

	build := func(side r2.Point) Rectangle {
		near := side.Mul(cfg.Offset / norm)
		far := side.Mul((cfg.Offset + size) / norm)
		return Rectangle{l.Start.Add(near), l.Start.Add(far), l.End.Add(near), l.End.Add(far)}
	}
	return build(goLeft), build(goRight), true
}

// PixelsInRectangle enumerates the pixels inside the rectangle given by exactly four corners,
// row by row between the left and the right border. If two corners share a row the rectangle is
// first rotated by a tenth of a degree so that the extremal corners are unique. A rectangle with
// a NaN or infinite corner covers no pixel.
func PixelsInRectangle(corners []r2.Point) []image.Point {
	if len(corners) != 4 {
		panic(fmt.Sprintf("a rectangle must be defined by exactly 4 corners, got %d", len(corners)))
	}
	for _, c := range corners {
		if !isFinite(c.X) || !isFinite(c.Y) {
			return nil
		}
	}
	pts := make([]r2.Point, 4)
	copy(pts, corners)
	if hasEqualHeights(pts) {
		rad := utils.DegToRad(equalHeightRotationDeg)
		cos, sin := math.Cos(rad), math.Sin(rad)
		for i, p := range pts {
			pts[i] = r2.Point{X: cos*p.X - sin*p.Y, Y: sin*p.X + cos*p.Y}
		}
	}

	upper := pts[0]
	for _, p := range pts[1:] {
		if p.Y < upper.Y {
			upper = p
		}
	}
	lower := r2.Point{Y: -1e6}
	for _, p := range pts {
		if p.Y > lower.Y && p != upper {
			lower = p
		}
	}
	left := r2.Point{X: 1e6}
	for _, p := range pts {
		if p.X < left.X && p != upper && p != lower {
			left = p
		}
	}
	var right r2.Point
	for _, p := range pts {
		if p != left && p != upper && p != lower {
			right = p
		}
	}

	leftBorder := xCoordsOnVector(upper, left, true, nil)
	rightBorder := xCoordsOnVector(upper, right, false, nil)
	// the left and right corners would otherwise be counted twice
	leftBorder = leftBorder[:len(leftBorder)-1]
	rightBorder = rightBorder[:len(rightBorder)-1]
	leftBorder = xCoordsOnVector(left, lower, true, leftBorder)
	rightBorder = xCoordsOnVector(right, lower, false, rightBorder)
	switch {
	case len(leftBorder) > len(rightBorder):
		leftBorder = leftBorder[:len(leftBorder)-1]
	case len(leftBorder) < len(rightBorder):
		rightBorder = rightBorder[:len(rightBorder)-1]
	}
	rows := utils.MinInt(len(leftBorder), len(rightBorder))

	top := int(math.Floor(upper.Y))
	var pixels []image.Point
	for i := 0; i < rows; i++ {
		y := top + i
		x := leftBorder[i]
		for {
			pixels = append(pixels, image.Point{X: x, Y: y})
			x++
			if x > rightBorder[i] {
				break
			}
		}
	}
	return pixels
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func hasEqualHeights(pts []r2.Point) bool {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if utils.Float64AlmostEqual(pts[i].Y, pts[j].Y, 1e-6) {
				return true
			}
		}
	}
	return false
}

// xCoordsOnVector appends the x coordinate of the border pixel of every row crossed by the
// vector from start to end, with start above end.
func xCoordsOnVector(start, end r2.Point, leftSide bool, xs []int) []int {
	top := int(math.Floor(start.Y))
	bottom := int(math.Ceil(end.Y))
	height := bottom - top
	if height <= 1 {
		if leftSide {
			return append(xs, int(math.Floor(start.X)))
		}
		return append(xs, int(math.Ceil(end.X)))
	}
	xStart := math.Floor(start.X) + 0.5
	width := math.Floor(end.X) - math.Floor(start.X)
	for i := 0; i < height; i++ {
		xs = append(xs, int(xStart+float64(i)*width/float64(height-1)))
	}
	return xs
}
