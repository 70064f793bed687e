package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Plane is a plane in Hessian normal form: Normal.Dot(p) + Offset = 0 with a unit Normal, so that
// Distance returns the signed euclidean distance of a point to the plane.
// The zero Plane marks an absent plane.
type Plane struct {
	Normal r3.Vector
	Offset float64
}

// NewPlaneFromEquation builds a plane from a*x + b*y + c*z + d = 0, normalizing the coefficients.
// It returns false if (a, b, c) is the zero vector.
func NewPlaneFromEquation(a, b, c, d float64) (Plane, bool) {
	normal := r3.Vector{X: a, Y: b, Z: c}
	norm := normal.Norm()
	if norm < floatEpsilon {
		return Plane{}, false
	}
	return Plane{Normal: normal.Mul(1 / norm), Offset: d / norm}, true
}

// NewPlaneFromPointAndNormal returns the plane with the given normal that contains the point.
func NewPlaneFromPointAndNormal(point, normal r3.Vector) (Plane, bool) {
	return NewPlaneFromEquation(normal.X, normal.Y, normal.Z, -normal.Dot(point))
}

// Equation returns the plane equation [0]x + [1]y + [2]z + [3] = 0.
func (p Plane) Equation() [4]float64 {
	return [4]float64{p.Normal.X, p.Normal.Y, p.Normal.Z, p.Offset}
}

// IsZero reports whether this is the absent plane {0, 0, 0, 0}.
func (p Plane) IsZero() bool {
	return p.Normal == (r3.Vector{}) && p.Offset == 0
}

// Distance returns the signed distance of the point to the plane.
func (p Plane) Distance(pt r3.Vector) float64 {
	return p.Normal.Dot(pt) + p.Offset
}

// Project returns the orthogonal projection of pt onto the plane.
func (p Plane) Project(pt r3.Vector) r3.Vector {
	return pt.Sub(p.Normal.Mul(p.Distance(pt)))
}

// Flip returns the same plane with the opposite orientation.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Offset: -p.Offset}
}

// DirectTowardsOrigin orients the plane such that the origin lies in its positive half-space.
func (p Plane) DirectTowardsOrigin() Plane {
	if p.Offset < 0 {
		return p.Flip()
	}
	return p
}

// IsDirectedTowards reports whether pt lies in the positive half-space of the plane, i.e. the
// dot product of the equation with the homogeneous point is positive.
func (p Plane) IsDirectedTowards(pt r3.Vector) bool {
	return p.Distance(pt) > 0
}

// HessianNormalFormOfPlane fits a plane to the points. With exactly three points the fit is
// exact and fails when the points are closer than minDistance (product of the two edge lengths)
// or when the edges enclose an angle whose absolute cosine is above maxCosTheta. With more points
// the normal is the singular vector of the smallest singular value of the centered points.
// Fewer than three points never yield a plane.
func HessianNormalFormOfPlane(points []r3.Vector, minDistance, maxCosTheta float64) (Plane, bool) {
	switch {
	case len(points) < 3:
		return Plane{}, false
	case len(points) == 3:
		v1 := points[1].Sub(points[0])
		v2 := points[2].Sub(points[0])
		norms := v1.Norm() * v2.Norm()
		if norms < minDistance {
			return Plane{}, false
		}
		cosTheta := math.Abs(v1.Dot(v2)) / norms
		if cosTheta > maxCosTheta {
			return Plane{}, false
		}
		return NewPlaneFromPointAndNormal(points[0], v1.Cross(v2))
	default:
		return fitPlaneSVD(points)
	}
}

func fitPlaneSVD(points []r3.Vector) (Plane, bool) {
	mean := MeanPoint(points)
	centered := mat.NewDense(len(points), 3, nil)
	for i, pt := range points {
		d := pt.Sub(mean)
		centered.SetRow(i, []float64{d.X, d.Y, d.Z})
	}
	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThinV); !ok {
		return Plane{}, false
	}
	var v mat.Dense
	svd.VTo(&v)
	// singular values are sorted in decreasing order
	normal := r3.Vector{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}
	return NewPlaneFromPointAndNormal(mean, normal)
}

// PlaneIntersectionDirection returns the unit direction of the line where the two planes meet.
// It fails for parallel planes.
func PlaneIntersectionDirection(p1, p2 Plane) (r3.Vector, bool) {
	n1, n2 := p1.Normal.Normalize(), p2.Normal.Normalize()
	if math.Abs(n1.Dot(n2)) > 1-floatEpsilon {
		return r3.Vector{}, false
	}
	return n1.Cross(n2).Normalize(), true
}

// PointOnPlaneIntersectionLine returns a point that lies on both planes. The component of the
// result along the dominant axis of direction is fixed to zero and the remaining two are solved
// from the plane equations. It fails if that 2x2 system is singular.
func PointOnPlaneIntersectionLine(p1, p2 Plane, direction r3.Vector) (r3.Vector, bool) {
	dominant := largestComponent(direction)
	e1, e2 := p1.Equation(), p2.Equation()
	a := mat.NewDense(2, 2, nil)
	col := 0
	for i := 0; i < 3; i++ {
		if i == dominant {
			continue
		}
		a.Set(0, col, e1[i])
		a.Set(1, col, e2[i])
		col++
	}
	if math.Abs(mat.Det(a)) < floatEpsilon {
		return r3.Vector{}, false
	}
	b := mat.NewVecDense(2, []float64{-e1[3], -e2[3]})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return r3.Vector{}, false
	}
	var out [3]float64
	col = 0
	for i := 0; i < 3; i++ {
		if i == dominant {
			continue
		}
		out[i] = x.AtVec(col)
		col++
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}, true
}

// LinePlaneIntersection returns the point where the infinite line through the segment crosses
// the plane. It fails when the line is parallel to the plane.
func LinePlaneIntersection(plane Plane, line LineSegment) (r3.Vector, bool) {
	dir := line.End.Sub(line.Start)
	denom := plane.Normal.Dot(dir)
	if math.Abs(denom) < floatEpsilon || dir.Norm() < floatEpsilon {
		return r3.Vector{}, false
	}
	t := -plane.Distance(line.Start) / denom
	return line.Start.Add(dir.Mul(t)), true
}

// PlaneThroughPointAndLine returns the plane containing both the point and the line.
// It fails when the point lies on the line or the line is degenerate.
func PlaneThroughPointAndLine(point r3.Vector, line LineSegment) (Plane, bool) {
	normal := line.End.Sub(point).Cross(line.Start.Sub(point))
	if normal.Norm() < floatEpsilon {
		return Plane{}, false
	}
	return NewPlaneFromPointAndNormal(point, normal)
}

func largestComponent(v r3.Vector) int {
	abs := []float64{math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)}
	idx := 0
	for i := 1; i < 3; i++ {
		if abs[i] > abs[idx] {
			idx = i
		}
	}
	return idx
}
