package detect2d

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/linedetection/vision/lines2d"
)

// fitSegment fits a line to the pixels in the total least squares sense and returns the segment
// between the projections of the first and last pixel.
func fitSegment(pixels []image.Point) lines2d.Line {
	var center r2.Point
	for _, p := range pixels {
		center = center.Add(r2.Point{X: float64(p.X), Y: float64(p.Y)})
	}
	center = center.Mul(1 / float64(len(pixels)))
	dir := principalDirection(pixels, nil, center)
	first, last := pixels[0], pixels[len(pixels)-1]
	project := func(p image.Point) r2.Point {
		d := r2.Point{X: float64(p.X), Y: float64(p.Y)}.Sub(center)
		return center.Add(dir.Mul(d.Dot(dir)))
	}
	start, end := project(first), project(last)
	return lines2d.Line{Start: start, End: end}
}

// principalDirection returns the unit direction of largest spread of the pixels around center,
// weighting every pixel by weights[i] when weights is not nil.
func principalDirection(pixels []image.Point, weights []float64, center r2.Point) r2.Point {
	var sxx, syy, sxy float64
	for i, p := range pixels {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		dx, dy := float64(p.X)-center.X, float64(p.Y)-center.Y
		sxx += w * dx * dx
		syy += w * dy * dy
		sxy += w * dx * dy
	}
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return r2.Point{X: math.Cos(theta), Y: math.Sin(theta)}
}

func lineBetween(a, b image.Point) lines2d.Line {
	return lines2d.NewLine(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
}
