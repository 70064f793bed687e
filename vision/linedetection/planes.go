package linedetection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/vision/lines2d"
)

const (
	// parallelPlanesCos is the absolute cosine between normals above which two planes are one surface.
	parallelPlanesCos = 0.95
	// minCenterRatio is the smallest share of the inliers of a line that must lie in its middle half.
	minCenterRatio = 0.25
)

// Find3DLineOnPlanes fits the planes of both inlier sets and decides what the line between them is.
// Planes whose means are close along both normals and that were both found by RANSAC are one
// surface feature: a PLANE line when they are parallel, otherwise their intersection, typed by
// AssignEdgeOrIntersectionLineType. Anything else is a discontinuity on the surface closer to the
// camera. The result runs in the direction of ref.
func (ld *LineDetector) Find3DLineOnPlanes(
	cloud *pointcloud.Organized,
	inliersRight, inliersLeft []r3.Vector,
	guess spatialmath.LineSegment,
	ref lines2d.Line,
	planesFound bool,
	st *Statistics,
) (LineWithPlanes, bool) {
	if len(inliersRight) < 3 || len(inliersLeft) < 3 {
		return LineWithPlanes{}, false
	}
	var out LineWithPlanes
	var ok bool
	if out.Hessians[0], ok = ld.fitPlane(inliersRight); !ok {
		return LineWithPlanes{}, false
	}
	if out.Hessians[1], ok = ld.fitPlane(inliersLeft); !ok {
		return LineWithPlanes{}, false
	}
	meanRight := spatialmath.MeanPoint(inliersRight)
	meanLeft := spatialmath.MeanPoint(inliersLeft)
	between := meanRight.Sub(meanLeft)
	closeAlongNormals := math.Abs(between.Dot(out.Hessians[0].Normal)) < ld.cfg.MaxDistBetweenPlanes &&
		math.Abs(between.Dot(out.Hessians[1].Normal)) < ld.cfg.MaxDistBetweenPlanes

	if !closeAlongNormals || !planesFound {
		return ld.discontinuityLine(out, inliersRight, inliersLeft, meanRight, meanLeft, guess, ref)
	}

	all := make([]r3.Vector, 0, len(inliersRight)+len(inliersLeft))
	all = append(all, inliersRight...)
	all = append(all, inliersLeft...)

	if math.Abs(out.Hessians[0].Normal.Dot(out.Hessians[1].Normal)) > parallelPlanesCos {
		line, ok := ld.adjustLineUsingInliers(all, guess)
		if !ok {
			return LineWithPlanes{}, false
		}
		out.Line = ld.orientLike(line, ref)
		out.Type = Plane
		if !ld.checkIfValidLineUsingInliers(all, out.Line) {
			return LineWithPlanes{}, false
		}
		return out, true
	}

	dir, ok := spatialmath.PlaneIntersectionDirection(out.Hessians[0], out.Hessians[1])
	if !ok {
		return LineWithPlanes{}, false
	}
	x0, ok := spatialmath.PointOnPlaneIntersectionLine(out.Hessians[0], out.Hessians[1], dir)
	if !ok {
		return LineWithPlanes{}, false
	}
	line, ok := ld.adjustLineUsingInliers(all, spatialmath.LineSegment{Start: x0, End: x0.Add(dir)})
	if !ok {
		return LineWithPlanes{}, false
	}
	out.Line = ld.orientLike(line, ref)
	if !ld.checkIfValidLineUsingInliers(all, out.Line) {
		return LineWithPlanes{}, false
	}
	return ld.AssignEdgeOrIntersectionLineType(cloud, inliersRight, inliersLeft, out, st)
}

func (ld *LineDetector) fitPlane(points []r3.Vector) (spatialmath.Plane, bool) {
	return spatialmath.HessianNormalFormOfPlane(points, ld.cfg.MinDistanceBetweenPointsHessian, ld.cfg.MaxCosThetaHessianComputation)
}

// discontinuityLine keeps the plane whose inliers are closer to the camera and fits the line on it.
func (ld *LineDetector) discontinuityLine(
	out LineWithPlanes,
	inliersRight, inliersLeft []r3.Vector,
	meanRight, meanLeft r3.Vector,
	guess spatialmath.LineSegment,
	ref lines2d.Line,
) (LineWithPlanes, bool) {
	idx, points := 1, inliersLeft
	if meanRight.Norm() < meanLeft.Norm() {
		idx, points = 0, inliersRight
	}
	out.Hessians[1-idx] = spatialmath.Plane{}
	line := ld.fitDiscontLineToInliers(points, out.Hessians[idx], guess)
	out.Line = ld.orientLike(line, ref)
	out.Type = Discont
	if !ld.checkIfValidLineUsingInliers(points, out.Line) {
		return LineWithPlanes{}, false
	}
	return out, true
}

// lineExtent returns the segment of the infinite line through l spanned by the points within
// MaxDeviationInlierLineCheck of it, and the number of those points.
func (ld *LineDetector) lineExtent(points []r3.Vector, l spatialmath.LineSegment) (spatialmath.LineSegment, int) {
	dir := l.Direction()
	if dir == (r3.Vector{}) {
		return l, 0
	}
	count := 0
	minT, maxT := math.Inf(1), math.Inf(-1)
	for _, pt := range points {
		if spatialmath.DistancePointToLine(l.Start, l.End, pt) > ld.cfg.MaxDeviationInlierLineCheck {
			continue
		}
		t := dir.Dot(pt.Sub(l.Start))
		minT = math.Min(minT, t)
		maxT = math.Max(maxT, t)
		count++
	}
	if count == 0 {
		return l, 0
	}
	return spatialmath.LineSegment{Start: l.Start.Add(dir.Mul(minT)), End: l.Start.Add(dir.Mul(maxT))}, count
}

// adjustLineUsingInliers moves the ends of l to the extreme points close to it. It needs at least
// MinPointsInLine such points.
func (ld *LineDetector) adjustLineUsingInliers(points []r3.Vector, l spatialmath.LineSegment) (spatialmath.LineSegment, bool) {
	adjusted, count := ld.lineExtent(points, l)
	if count < ld.cfg.MinPointsInLine {
		return spatialmath.LineSegment{}, false
	}
	return adjusted, true
}

// checkIfValidLineUsingInliers requires a quarter of the points close to the line to lie in its
// middle half, which rejects lines supported only near their ends.
func (ld *LineDetector) checkIfValidLineUsingInliers(points []r3.Vector, l spatialmath.LineSegment) bool {
	length := l.Length()
	if length == 0 {
		return false
	}
	dir := l.Direction()
	total, center := 0, 0
	for _, pt := range points {
		if spatialmath.DistancePointToLine(l.Start, l.End, pt) > ld.cfg.MaxDeviationInlierLineCheck {
			continue
		}
		total++
		pos := dir.Dot(pt.Sub(l.Start)) / length
		if pos > 0.25 && pos < 0.75 {
			center++
		}
	}
	if total == 0 {
		return false
	}
	return float64(center)/float64(total) >= minCenterRatio
}

// fitDiscontLineToInliers places the guess on the plane so that it reprojects to the same pixels,
// moves it onto the inlier closest to it in the image, and stretches it over the inliers along it.
// The guess is returned unchanged when the plane is parallel to the viewing direction of the solve.
func (ld *LineDetector) fitDiscontLineToInliers(
	points []r3.Vector,
	plane spatialmath.Plane,
	guess spatialmath.LineSegment,
) spatialmath.LineSegment {
	ref2D, ok := ld.projectLine(guess)
	if !ok {
		return guess
	}
	line, ok := ld.lineOnPlaneThroughPixels(plane, ref2D)
	if !ok {
		return guess
	}

	closest := -1
	best := math.Inf(1)
	for i, pt := range points {
		px, ok := ld.projection.Project(pt)
		if !ok {
			continue
		}
		if d := distancePointToLine2D(ref2D, px); d < best {
			best, closest = d, i
		}
	}
	if closest >= 0 {
		onPlane := plane.Project(points[closest])
		line = line.Translate(onPlane.Sub(line.ProjectPoint(onPlane)))
	}
	if !spatialmath.IsValidPoint(line.Start) || !spatialmath.IsValidPoint(line.End) {
		return guess
	}
	if extended, count := ld.lineExtent(points, line); count >= 2 {
		line = extended
	}
	return line
}

// lineOnPlaneThroughPixels solves for the 3D points on the plane that project onto the ends of
// the 2D line. Substituting z from the plane equation into the projection gives, for each
// pixel (u, v), the 3x3 system A (x, y, 1)^T = w (u, v, 1)^T.
func (ld *LineDetector) lineOnPlaneThroughPixels(plane spatialmath.Plane, l lines2d.Line) (spatialmath.LineSegment, bool) {
	e := plane.Equation()
	c := e[2]
	if math.Abs(c) < 1e-9 {
		return spatialmath.LineSegment{}, false
	}
	a := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		p2 := ld.projection.At(i, 2)
		a.Set(i, 0, ld.projection.At(i, 0)-e[0]*p2/c)
		a.Set(i, 1, ld.projection.At(i, 1)-e[1]*p2/c)
		a.Set(i, 2, ld.projection.At(i, 3)-e[3]*p2/c)
	}
	solve := func(px r2.Point) (r3.Vector, bool) {
		var v mat.VecDense
		if err := v.SolveVec(a, mat.NewVecDense(3, []float64{px.X, px.Y, 1})); err != nil {
			return r3.Vector{}, false
		}
		w := v.AtVec(2)
		if math.Abs(w) < 1e-12 {
			return r3.Vector{}, false
		}
		x, y := v.AtVec(0)/w, v.AtVec(1)/w
		z := -(e[0]*x + e[1]*y + e[3]) / c
		return r3.Vector{X: x, Y: y, Z: z}, true
	}
	start, ok := solve(l.Start)
	if !ok {
		return spatialmath.LineSegment{}, false
	}
	end, ok := solve(l.End)
	if !ok {
		return spatialmath.LineSegment{}, false
	}
	return spatialmath.LineSegment{Start: start, End: end}, true
}

// distancePointToLine2D returns the distance of p to the infinite line through l.
func distancePointToLine2D(l lines2d.Line, p r2.Point) float64 {
	d := l.Direction()
	norm := d.Norm()
	if norm == 0 {
		return p.Sub(l.Start).Norm()
	}
	return math.Abs(d.Cross(p.Sub(l.Start))) / norm
}
