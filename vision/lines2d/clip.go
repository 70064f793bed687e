package lines2d

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/linedetection/utils"
)

const (
	// minClipLength is the length under which a line is discarded before clipping.
	minClipLength = 1e-4
	// clipPrecision is the number of decimals clipped endpoints are rounded to.
	clipPrecision = 3
	// boundsEpsilon keeps clamped coordinates strictly below the image size.
	boundsEpsilon = 1e-9
)

// ClipToBounds fits a line into a width x height image.
//
// With keepDirection false every coordinate is clamped to [0, bound) on its own, which can change
// the direction of the line. With keepDirection true each endpoint outside the image is moved
// along the line to the image border and rounded to a fixed number of decimals; a line that is
// too short or does not cross the image becomes the zero Line.
func ClipToBounds(l Line, width, height int, keepDirection bool) Line {
	if width <= 0 || height <= 0 {
		panic("image bounds must be positive")
	}
	if !keepDirection {
		xBound := float64(width) - boundsEpsilon
		yBound := float64(height) - boundsEpsilon
		return NewLine(
			utils.Clamp(l.Start.X, 0, xBound),
			utils.Clamp(l.Start.Y, 0, yBound),
			utils.Clamp(l.End.X, 0, xBound),
			utils.Clamp(l.End.Y, 0, yBound),
		)
	}
	if l.Length() < minClipLength {
		return Line{}
	}
	xMax, yMax := float64(width), float64(height)
	start, ok := trimEndpoint(l.Start, l.End, xMax, yMax)
	if !ok {
		return Line{}
	}
	end, ok := trimEndpoint(l.End, l.Start, xMax, yMax)
	if !ok {
		return Line{}
	}
	return Line{Start: roundPoint(start), End: roundPoint(end)}
}

// ClipAllToBounds applies ClipToBounds to every line, keeping the discarded zero lines so the
// output indices match the input.
func ClipAllToBounds(lines []Line, width, height int, keepDirection bool) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = ClipToBounds(l, width, height, keepDirection)
	}
	return out
}

// trimEndpoint moves pt along the line towards other until it lies in [0, xMax] x [0, yMax].
func trimEndpoint(pt, other r2.Point, xMax, yMax float64) (r2.Point, bool) {
	insideX := pt.X >= 0 && pt.X <= xMax
	insideY := pt.Y >= 0 && pt.Y <= yMax
	if insideX && insideY {
		return pt, true
	}
	candidates := make([]r2.Point, 0, 2)

	if !insideX {
		borderX := 0.
		if pt.X > xMax {
			borderX = xMax
		}
		// both endpoints beyond the same vertical border
		if (pt.X < 0 && other.X < 0) || (pt.X > xMax && other.X > xMax) {
			return r2.Point{}, false
		}
		if utils.Float64AlmostEqual(other.X, pt.X, 1e-6) {
			return r2.Point{}, false
		}
		y := other.Y - (other.Y-pt.Y)*(other.X-borderX)/(other.X-pt.X)
		candidates = append(candidates, r2.Point{X: borderX, Y: y})
	}
	if !insideY {
		borderY := 0.
		if pt.Y > yMax {
			borderY = yMax
		}
		if (pt.Y < 0 && other.Y < 0) || (pt.Y > yMax && other.Y > yMax) {
			return r2.Point{}, false
		}
		if utils.Float64AlmostEqual(other.Y, pt.Y, 1e-6) {
			return r2.Point{}, false
		}
		x := other.X - (other.X-pt.X)*(other.Y-borderY)/(other.Y-pt.Y)
		candidates = append(candidates, r2.Point{X: x, Y: borderY})
	}
	for _, c := range candidates {
		if inClosedBounds(c, xMax, yMax) {
			return c, true
		}
	}
	return r2.Point{}, false
}

func inClosedBounds(pt r2.Point, xMax, yMax float64) bool {
	const eps = 1e-6
	return pt.X >= -eps && pt.X <= xMax+eps && pt.Y >= -eps && pt.Y <= yMax+eps
}

func roundPoint(pt r2.Point) r2.Point {
	return r2.Point{
		X: math.Max(0, utils.RoundToPrecision(pt.X, clipPrecision)),
		Y: math.Max(0, utils.RoundToPrecision(pt.Y, clipPrecision)),
	}
}
