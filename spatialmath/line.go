package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// LineSegment is a 3D line segment from Start to End.
type LineSegment struct {
	Start r3.Vector
	End   r3.Vector
}

// Direction returns the unit vector from Start to End, or the zero vector for a degenerate segment.
func (l LineSegment) Direction() r3.Vector {
	d := l.End.Sub(l.Start)
	if d.Norm() < floatEpsilon {
		return r3.Vector{}
	}
	return d.Normalize()
}

// Length returns the distance between the endpoints.
func (l LineSegment) Length() float64 {
	return l.End.Sub(l.Start).Norm()
}

// Center returns the midpoint of the segment.
func (l LineSegment) Center() r3.Vector {
	return l.Start.Add(l.End).Mul(0.5)
}

// Reversed swaps the endpoints.
func (l LineSegment) Reversed() LineSegment {
	return LineSegment{Start: l.End, End: l.Start}
}

// Translate moves both endpoints by offset.
func (l LineSegment) Translate(offset r3.Vector) LineSegment {
	return LineSegment{Start: l.Start.Add(offset), End: l.End.Add(offset)}
}

// IsZero reports whether all six coordinates are within eps of zero.
func (l LineSegment) IsZero(eps float64) bool {
	return IsNearOrigin(l.Start, eps) && IsNearOrigin(l.End, eps)
}

// TouchesOrigin reports whether either endpoint is within eps of the origin. Such endpoints come
// from pixels without depth information.
func (l LineSegment) TouchesOrigin(eps float64) bool {
	return IsNearOrigin(l.Start, eps) || IsNearOrigin(l.End, eps)
}

// DistanceToPoint returns the distance of pt to the infinite line through the segment.
func (l LineSegment) DistanceToPoint(pt r3.Vector) float64 {
	return DistancePointToLine(l.Start, l.End, pt)
}

// ProjectPoint returns the orthogonal projection of pt onto the infinite line through the segment.
func (l LineSegment) ProjectPoint(pt r3.Vector) r3.Vector {
	dir := l.Direction()
	return l.Start.Add(dir.Mul(pt.Sub(l.Start).Dot(dir)))
}

// Equal compares two segments endpoint by endpoint within epsilon.
func (l LineSegment) Equal(other LineSegment, epsilon float64) bool {
	return R3VectorAlmostEqual(l.Start, other.Start, epsilon) && R3VectorAlmostEqual(l.End, other.End, epsilon)
}

// DistancePointToLine returns the distance of pt to the infinite line through start and end.
// A degenerate line falls back to the distance to start.
func DistancePointToLine(start, end, pt r3.Vector) float64 {
	dir := end.Sub(start)
	norm := dir.Norm()
	if norm < floatEpsilon {
		return pt.Sub(start).Norm()
	}
	return dir.Cross(pt.Sub(start)).Norm() / norm
}

// MeanPoint returns the centroid of the points.
func MeanPoint(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		return r3.Vector{}
	}
	var mean r3.Vector
	for _, pt := range points {
		mean = mean.Add(pt)
	}
	return mean.Mul(1 / float64(len(points)))
}

// IsNearOrigin reports whether every component of v is within eps of zero.
func IsNearOrigin(v r3.Vector, eps float64) bool {
	return math.Abs(v.X) < eps && math.Abs(v.Y) < eps && math.Abs(v.Z) < eps
}

// IsValidPoint reports whether all components of v are finite.
func IsValidPoint(v r3.Vector) bool {
	return !(math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) ||
		math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0))
}
