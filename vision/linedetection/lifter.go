package linedetection

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/utils"
	"go.viam.com/linedetection/vision/lines2d"
	"go.viam.com/linedetection/vision/segmentation"
)

// unusableRating is the rating of a line without a 3D guess.
const unusableRating = 1e9

// PatchInliers are the plane inliers found next to a 2D line.
type PatchInliers struct {
	Right      []r3.Vector
	Left       []r3.Vector
	RightFound bool
	LeftFound  bool
	// Colors holds the mean colour of the left and of the right patch, if the cloud is coloured.
	Colors []color.NRGBA
}

// FindInliersGiven2DLine samples the rectangles on both sides of the line and runs RANSAC on
// each of them. A single pixel with the no-depth sentinel, or a patch with fewer than
// MinPointsInRect points, leaves both sides not found. A side is found when at least
// MinInlierRANSAC of its points are inliers.
func (ld *LineDetector) FindInliersGiven2DLine(cloud *pointcloud.Organized, line lines2d.Line) PatchInliers {
	var out PatchInliers
	left, right, ok := lines2d.RectanglesFromLine(line, ld.cfg.Rectangles())
	if !ok {
		return out
	}
	leftPixels, rightPixels := left.Pixels(), right.Pixels()

	if cloud.HasColor() {
		out.Colors = []color.NRGBA{meanColor(cloud, leftPixels), meanColor(cloud, rightPixels)}
	}

	leftPoints, ok := patchPoints(cloud, leftPixels)
	if !ok {
		return out
	}
	rightPoints, ok := patchPoints(cloud, rightPixels)
	if !ok {
		return out
	}
	if len(leftPoints) < ld.cfg.MinPointsInRect || len(rightPoints) < ld.cfg.MinPointsInRect {
		return out
	}

	ransac := ld.cfg.RANSAC()
	out.Left, out.LeftFound = patchInliers(leftPoints, ransac)
	out.Right, out.RightFound = patchInliers(rightPoints, ransac)
	return out
}

// patchPoints gathers the valid points of the pixels. It fails on the no-depth sentinel.
func patchPoints(cloud *pointcloud.Organized, pixels []image.Point) ([]r3.Vector, bool) {
	points := make([]r3.Vector, 0, len(pixels))
	for _, p := range pixels {
		if !cloud.InBounds(p.X, p.Y) || !cloud.IsValid(p.X, p.Y) {
			continue
		}
		if cloud.IsZero(p.X, p.Y) {
			return nil, false
		}
		points = append(points, cloud.At(p.X, p.Y))
	}
	return points, true
}

// patchInliers keeps the RANSAC inliers of one patch. It skips the refit of PlaneRANSAC because
// Find3DLineOnPlanes fits the final planes on the inliers, so a plane here would be discarded.
func patchInliers(points []r3.Vector, cfg segmentation.RANSACConfig) ([]r3.Vector, bool) {
	if len(points) <= 3 {
		return nil, false
	}
	inliers := segmentation.RANSACInliers(points, cfg)
	found := len(inliers) > 0 && float64(len(inliers)) >= cfg.MinInlierFraction*float64(len(points))
	return inliers, found
}

// FindAndRate3DLine returns the 3D line between the first valid pixels walking inwards from
// both ends of the 2D line, and rates it by the mean distance of the valid points on the 2D line
// to it. Lower is better; a line without two distinct valid ends rates unusableRating.
func FindAndRate3DLine(cloud *pointcloud.Organized, line lines2d.Line) (spatialmath.LineSegment, float64) {
	clampPixel := func(x, y float64) image.Point {
		return image.Point{
			X: utils.Clamp(int(math.Floor(x)), 0, cloud.Width()-1),
			Y: utils.Clamp(int(math.Floor(y)), 0, cloud.Height()-1),
		}
	}
	pixels := lines2d.Bresenham(clampPixel(line.Start.X, line.Start.Y), clampPixel(line.End.X, line.End.Y))

	first := -1
	for i, p := range pixels {
		if cloud.IsValid(p.X, p.Y) {
			first = i
			break
		}
	}
	if first < 0 {
		return spatialmath.LineSegment{}, unusableRating
	}
	last := first
	for i := len(pixels) - 1; i > first; i-- {
		if cloud.IsValid(pixels[i].X, pixels[i].Y) {
			last = i
			break
		}
	}
	if last == first {
		return spatialmath.LineSegment{}, unusableRating
	}
	start := cloud.At(pixels[first].X, pixels[first].Y)
	end := cloud.At(pixels[last].X, pixels[last].Y)
	line3D := spatialmath.LineSegment{Start: start, End: end}
	if line3D.TouchesOrigin(originEpsilon) {
		return line3D, unusableRating
	}

	var sum float64
	var count int
	for _, p := range pixels[first : last+1] {
		if !cloud.IsValid(p.X, p.Y) {
			continue
		}
		sum += spatialmath.DistancePointToLine(start, end, cloud.At(p.X, p.Y))
		count++
	}
	return line3D, sum / float64(count)
}

// Find3DLinesRated rates every line and its two one pixel perpendicular shifts, and keeps the
// best rated 3D guess for each line. The ratings are returned by index with the guesses.
func Find3DLinesRated(cloud *pointcloud.Organized, lines []lines2d.Line) ([]spatialmath.LineSegment, []float64) {
	candidates := make([]spatialmath.LineSegment, len(lines))
	ratings := make([]float64, len(lines))
	for i, l := range lines {
		if l.IsZero() {
			ratings[i] = unusableRating
			continue
		}
		up, low := lines2d.PerpendicularShifts(l, cloud.Width(), cloud.Height())
		midLine, midRating := FindAndRate3DLine(cloud, l)
		upLine, upRating := FindAndRate3DLine(cloud, up)
		lowLine, lowRating := FindAndRate3DLine(cloud, low)
		switch {
		case upRating < midRating && upRating < lowRating:
			candidates[i], ratings[i] = upLine, upRating
		case lowRating < midRating:
			candidates[i], ratings[i] = lowLine, lowRating
		default:
			candidates[i], ratings[i] = midLine, midRating
		}
	}
	return candidates, ratings
}

// Find3DLinesByShortest matches the 3x3 pixel patches around both ends of every line and
// returns the closest pair of valid points as the 3D line. Lines without valid points on either
// end give the zero segment.
func Find3DLinesByShortest(cloud *pointcloud.Organized, lines []lines2d.Line) []spatialmath.LineSegment {
	out := make([]spatialmath.LineSegment, len(lines))
	for i, l := range lines {
		startPatch := validPatch(cloud, int(math.Floor(l.Start.X)), int(math.Floor(l.Start.Y)), 1)
		endPatch := validPatch(cloud, int(math.Floor(l.End.X)), int(math.Floor(l.End.Y)), 1)
		best := math.Inf(1)
		for _, s := range startPatch {
			for _, e := range endPatch {
				d := e.Sub(s).Norm2()
				if d < best {
					best = d
					out[i] = spatialmath.LineSegment{Start: s, End: e}
				}
			}
		}
	}
	return out
}

// validPatch returns the valid non-sentinel points within radius pixels of (cx, cy).
func validPatch(cloud *pointcloud.Organized, cx, cy, radius int) []r3.Vector {
	var points []r3.Vector
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if !cloud.InBounds(x, y) || !cloud.IsValid(x, y) || cloud.IsZero(x, y) {
				continue
			}
			points = append(points, cloud.At(x, y))
		}
	}
	return points
}
