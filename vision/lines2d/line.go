// Package lines2d contains the pixel space line utilities used before lifting lines to 3D:
// clipping to image bounds, merging near duplicates, rectangle patches and rasterization.
package lines2d

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"
)

// Line is a segment in pixel coordinates.
type Line struct {
	Start r2.Point
	End   r2.Point
}

// NewLine returns the line from (x1, y1) to (x2, y2).
func NewLine(x1, y1, x2, y2 float64) Line {
	return Line{Start: r2.Point{X: x1, Y: y1}, End: r2.Point{X: x2, Y: y2}}
}

// Coords returns start.x, start.y, end.x, end.y.
func (l Line) Coords() [4]float64 {
	return [4]float64{l.Start.X, l.Start.Y, l.End.X, l.End.Y}
}

// Direction returns End - Start.
func (l Line) Direction() r2.Point {
	return l.End.Sub(l.Start)
}

// Length returns the euclidean length of the segment.
func (l Line) Length() float64 {
	return l.Direction().Norm()
}

// IsZero reports whether all four coordinates are zero, the marker of a discarded line.
func (l Line) IsZero() bool {
	return l == Line{}
}

// Reversed swaps the endpoints.
func (l Line) Reversed() Line {
	return Line{Start: l.End, End: l.Start}
}

// Shift translates both endpoints.
func (l Line) Shift(offset r2.Point) Line {
	return Line{Start: l.Start.Add(offset), End: l.End.Add(offset)}
}

// Slope returns dy/dx. Vertical lines have no defined slope and return 0.
func (l Line) Slope() float64 {
	d := l.Direction()
	if math.Abs(d.X) < 1e-9 {
		return 0
	}
	return d.Y / d.X
}

func (l Line) String() string {
	return fmt.Sprintf("(%.2f, %.2f) -> (%.2f, %.2f)", l.Start.X, l.Start.Y, l.End.X, l.End.Y)
}

// EqualityConfig holds the thresholds of AreLinesEqual.
type EqualityConfig struct {
	// MinCosSquared is the smallest squared cosine of the angle between two equal lines.
	MinCosSquared float64 `json:"min_cos_sq_angle_difference"`
	// MaxSquaredDistance bounds the squared distance of the closest pair of endpoints.
	MaxSquaredDistance float64 `json:"max_sq_endpoint_distance"`
}

// DefaultEqualityConfig returns the thresholds used when merging detector output.
func DefaultEqualityConfig() EqualityConfig {
	return EqualityConfig{MinCosSquared: 0.98, MaxSquaredDistance: 2}
}

// AreLinesEqual reports whether two lines are near duplicates: almost parallel and with a pair
// of endpoints closer than the distance threshold.
func AreLinesEqual(l1, l2 Line, cfg EqualityConfig) bool {
	d1, d2 := l1.Direction(), l2.Direction()
	denom := d1.Dot(d1) * d2.Dot(d2)
	if denom == 0 {
		return false
	}
	dot := d1.Dot(d2)
	cosSq := dot * dot / denom

	minDist := lo.Min([]float64{
		squaredDistance(l1.Start, l2.Start),
		squaredDistance(l1.Start, l2.End),
		squaredDistance(l1.End, l2.Start),
		squaredDistance(l1.End, l2.End),
	})
	return cosSq > cfg.MinCosSquared && minDist < cfg.MaxSquaredDistance
}

func squaredDistance(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Shrink shortens every line symmetrically to coefficient times its length. Lines that would
// end up shorter than minLength are returned unchanged. The coefficient must be in (0, 1].
func Shrink(lines []Line, coefficient, minLength float64) []Line {
	if coefficient <= 0 || coefficient > 1 {
		panic(fmt.Sprintf("shrink coefficient must be in (0, 1], got %v", coefficient))
	}
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		cut := l.Direction().Mul((1 - coefficient) / 2)
		shrunk := Line{Start: l.Start.Add(cut), End: l.End.Sub(cut)}
		if shrunk.Length() < minLength {
			out = append(out, l)
			continue
		}
		out = append(out, shrunk)
	}
	return out
}

// PerpendicularShifts returns the line moved by one pixel to either side, with endpoints snapped
// to pixels and kept inside a width x height image.
func PerpendicularShifts(l Line, width, height int) (Line, Line) {
	d := l.Direction()
	norm := d.Norm()
	if norm == 0 {
		return l, l
	}
	shift := func(sign float64) Line {
		ox := math.Floor(sign*d.Y/norm + 0.5)
		oy := math.Floor(-sign*d.X/norm + 0.5)
		clamp := func(v float64, bound int) float64 {
			return math.Max(0, math.Min(v, float64(bound-1)))
		}
		return NewLine(
			clamp(math.Floor(l.Start.X)+ox, width), clamp(math.Floor(l.Start.Y)+oy, height),
			clamp(math.Floor(l.End.X)+ox, width), clamp(math.Floor(l.End.Y)+oy, height),
		)
	}
	return shift(1), shift(-1)
}
