package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrLineThroughOrigin is returned when a line has no orthonormal representation because it
// passes through the origin (its Plücker moment vanishes).
var ErrLineThroughOrigin = errors.New("line passes through the origin")

// CenterAndDirection returns the midpoint of the segment and its unit direction, flipped such
// that the x component of the direction is non-negative.
func (l LineSegment) CenterAndDirection() (r3.Vector, r3.Vector) {
	dir := l.Direction()
	if dir.X < 0 {
		dir = dir.Mul(-1)
	}
	return l.Center(), dir
}

// PluckerLine holds the Plücker coordinates of a line: Moment is the normal of the plane through
// the line and the origin, Direction the (unnormalized) direction of the line.
type PluckerLine struct {
	Moment    r3.Vector
	Direction r3.Vector
}

// Plucker returns the Plücker coordinates n = start x end, v = end - start.
func (l LineSegment) Plucker() PluckerLine {
	return PluckerLine{Moment: l.Start.Cross(l.End), Direction: l.End.Sub(l.Start)}
}

// OrthonormalLine is the four parameter representation of a 3D line: Euler angles (static x,
// y, z axes) of the rotation U and the angle of the 2D rotation W.
type OrthonormalLine struct {
	Theta1, Theta2, Theta3, Theta4 float64
}

// Orthonormal converts Plücker coordinates into the orthonormal representation with
// U = [n/|n|, v/|v|, (n x v)/|n x v|] and W = [[|n|, -|v|], [|v|, |n|]] / |(|n|, |v|)|.
func (p PluckerLine) Orthonormal() (OrthonormalLine, error) {
	nNorm, vNorm := p.Moment.Norm(), p.Direction.Norm()
	if vNorm < floatEpsilon {
		return OrthonormalLine{}, errors.New("line has no direction")
	}
	if nNorm < floatEpsilon {
		return OrthonormalLine{}, ErrLineThroughOrigin
	}
	nCrossV := p.Moment.Cross(p.Direction)
	cols := []r3.Vector{p.Moment.Mul(1 / nNorm), p.Direction.Mul(1 / vNorm), nCrossV.Normalize()}
	u := mat.NewDense(3, 3, nil)
	for c, col := range cols {
		u.Set(0, c, col.X)
		u.Set(1, c, col.Y)
		u.Set(2, c, col.Z)
	}

	var uut mat.Dense
	uut.Mul(u, u.T())
	var diff mat.Dense
	diff.Sub(mat.NewDiagDense(3, []float64{1, 1, 1}), &uut)
	if mat.Norm(&diff, 2) > 1e-4 {
		return OrthonormalLine{}, errors.New("moment and direction are not orthogonal")
	}

	theta1, theta2, theta3 := eulerSXYZ(u)
	wNorm := math.Hypot(nNorm, vNorm)
	return OrthonormalLine{
		Theta1: theta1,
		Theta2: theta2,
		Theta3: theta3,
		Theta4: math.Atan2(vNorm/wNorm, nNorm/wNorm),
	}, nil
}

const eulerEpsilon = 4 * 2.220446049250313e-16

// eulerSXYZ decomposes a rotation matrix into static-frame x, y, z Euler angles.
func eulerSXYZ(m mat.Matrix) (float64, float64, float64) {
	cy := math.Hypot(m.At(0, 0), m.At(1, 0))
	if cy > eulerEpsilon {
		return math.Atan2(m.At(2, 1), m.At(2, 2)),
			math.Atan2(-m.At(2, 0), cy),
			math.Atan2(m.At(1, 0), m.At(0, 0))
	}
	return math.Atan2(-m.At(1, 2), m.At(1, 1)), math.Atan2(-m.At(2, 0), cy), 0
}
