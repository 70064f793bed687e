package linedetection

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/vision/lines2d"
)

// maxProlongations bounds how often a prolongation that stays on both planes is extended further.
const maxProlongations = 4

// AssignEdgeOrIntersectionLineType decides between EDGE and INTERSECT for a line on two
// non-parallel planes. Both planes are first turned towards the camera. When the inliers of each
// side lie behind the plane of the other side the line is a convex EDGE. When both lie in front
// the surfaces are sampled past both ends of the line: a line whose sides all continue or all end
// is an EDGE, anything in between an INTERSECT. Mixed convexity rejects the line.
func (ld *LineDetector) AssignEdgeOrIntersectionLineType(
	cloud *pointcloud.Organized,
	inliersRight, inliersLeft []r3.Vector,
	line LineWithPlanes,
	st *Statistics,
) (LineWithPlanes, bool) {
	line.Hessians[0] = line.Hessians[0].DirectTowardsOrigin()
	line.Hessians[1] = line.Hessians[1].DirectTowardsOrigin()

	rightBehind := mostlyBehind(inliersRight, line.Hessians[1])
	leftBehind := mostlyBehind(inliersLeft, line.Hessians[0])
	switch {
	case rightBehind && leftBehind:
		line.Type = Edge
		return line, true
	case rightBehind != leftBehind:
		if st != nil {
			st.DiscardedForConvexity++
		}
		ld.logger.Debugw("discarding line with inconsistent convexity", "start", line.Line.Start, "end", line.Line.End)
		return LineWithPlanes{}, false
	}

	pattern := ld.prolongationPattern(cloud, line)
	if st != nil {
		st.Prolongation.Add(pattern)
	}
	if pattern == "0000" || pattern == "1111" {
		line.Type = Edge
	} else {
		line.Type = Intersect
	}
	return line, true
}

// mostlyBehind reports whether more points lie behind the plane than in front of it.
func mostlyBehind(points []r3.Vector, plane spatialmath.Plane) bool {
	ahead, behind := 0, 0
	for _, pt := range points {
		if plane.IsDirectedTowards(pt) {
			ahead++
		} else {
			behind++
		}
	}
	return behind > ahead
}

// prolongationPattern extends the line before its start and after its end and reports for each
// extension whether the left and the right patch stay on their planes, as left-before,
// right-before, left-after, right-after. An end whose both sides stay on their planes is
// extended again, up to maxProlongations times.
func (ld *LineDetector) prolongationPattern(cloud *pointcloud.Organized, line LineWithPlanes) string {
	step := line.Line.Direction().Mul(ld.cfg.ExtensionLengthForEdgeOrIntersect)
	before := spatialmath.LineSegment{Start: line.Line.Start.Sub(step), End: line.Line.Start}
	after := spatialmath.LineSegment{Start: line.Line.End, End: line.Line.End.Add(step)}

	leftBefore, rightBefore := ld.checkProlongedLine(cloud, line.Hessians, before)
	leftAfter, rightAfter := ld.checkProlongedLine(cloud, line.Hessians, after)
	canBefore := leftBefore && rightBefore
	canAfter := leftAfter && rightAfter
	for i := 0; (canBefore || canAfter) && i < maxProlongations; i++ {
		if canBefore {
			before.Start = before.Start.Sub(step)
		}
		if canAfter {
			after.End = after.End.Add(step)
		}
		leftBefore, rightBefore = ld.checkProlongedLine(cloud, line.Hessians, before)
		leftAfter, rightAfter = ld.checkProlongedLine(cloud, line.Hessians, after)
		canBefore = leftBefore && rightBefore
		canAfter = leftAfter && rightAfter
	}
	return bit(leftBefore) + bit(rightBefore) + bit(leftAfter) + bit(rightAfter)
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// checkProlongedLine samples both rectangles of the projected segment. A side holds when it has
// at least MinPointsInProlongedRect points and at least MaxPointsForEmptyRectangle of them are
// on the plane of that side.
func (ld *LineDetector) checkProlongedLine(
	cloud *pointcloud.Organized,
	hessians [2]spatialmath.Plane,
	segment spatialmath.LineSegment,
) (bool, bool) {
	seg2D, ok := ld.projectLine(segment)
	if !ok {
		return false, false
	}
	left, right, ok := lines2d.RectanglesFromLine(seg2D, ld.cfg.Rectangles())
	if !ok {
		return false, false
	}
	onPlane := func(rect lines2d.Rectangle, plane spatialmath.Plane) bool {
		var points []r3.Vector
		for _, p := range rect.Pixels() {
			if cloud.InBounds(p.X, p.Y) && cloud.IsValid(p.X, p.Y) {
				points = append(points, cloud.At(p.X, p.Y))
			}
		}
		if len(points) < ld.cfg.MinPointsInProlongedRect {
			return false
		}
		count := 0
		for _, pt := range points {
			if math.Abs(plane.Distance(pt)) < ld.cfg.MaxErrorInlierRANSAC {
				count++
			}
		}
		return count >= ld.cfg.MaxPointsForEmptyRectangle
	}
	return onPlane(left, hessians[1]), onPlane(right, hessians[0])
}
