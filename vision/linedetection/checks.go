package linedetection

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/utils"
	"go.viam.com/linedetection/vision/lines2d"
)

const (
	// borderMarginPixels is the margin, on the sum of both endpoint coordinates, that keeps a 2D
	// line away from the image border.
	borderMarginPixels = 4
	// minReprojectionCos is the smallest absolute cosine between a 2D line and its reprojected 3D line.
	minReprojectionCos = 0.95
	// maxDiscontJump is the largest distance between the mean points of consecutive steps along a line.
	maxDiscontJump = 0.1
)

// CheckIfValidLineBruteForce bins every cloud point close to the line by its position along the
// line, in MinPointsInLine bins, and cuts both ends of the line back to the outermost non-empty
// bins. It rejects lines touching the origin and lines with no more close points than bins.
func (ld *LineDetector) CheckIfValidLineBruteForce(cloud *pointcloud.Organized, line spatialmath.LineSegment) (spatialmath.LineSegment, bool) {
	if line.TouchesOrigin(originEpsilon) {
		return line, false
	}
	length := line.Length()
	if length == 0 {
		return line, false
	}
	dir := line.Direction()
	span := line.End.Sub(line.Start)
	bins := ld.cfg.MinPointsInLine
	hist := make([]int, bins)
	count := 0
	cloud.Iterate(func(x, y int, pt r3.Vector) bool {
		if !cloud.IsValid(x, y) || spatialmath.DistancePointToLine(line.Start, line.End, pt) > ld.cfg.MaxDeviationInlierLineCheck {
			return true
		}
		dist := dir.Dot(pt.Sub(line.Start))
		if dist < 0 || dist >= length {
			return true
		}
		hist[utils.Clamp(int(dist/length*float64(bins)), 0, bins-1)]++
		count++
		return true
	})
	if count <= bins {
		return line, false
	}
	front, back := 0, bins-1
	for hist[front] == 0 {
		front++
	}
	for hist[back] == 0 {
		back--
	}
	// a single bin leaves nothing to scale the bin positions by
	if bins == 1 {
		return line, true
	}
	scale := 1 / float64(bins-1)
	return spatialmath.LineSegment{
		Start: line.Start.Add(span.Mul(float64(front) * scale)),
		End:   line.Start.Add(span.Mul(float64(back) * scale)),
	}, true
}

// CheckIfValidLineWith2DInfo rejects a 3D line that touches the origin, that comes from a 2D
// line along the image border, that is shorter than MinLengthLine3D, or whose reprojection does
// not match the 2D line in length or direction.
func (ld *LineDetector) CheckIfValidLineWith2DInfo(cloud *pointcloud.Organized, line2D lines2d.Line, line3D spatialmath.LineSegment) bool {
	if line3D.TouchesOrigin(originEpsilon) {
		return false
	}
	xSum := line2D.Start.X + line2D.End.X
	ySum := line2D.Start.Y + line2D.End.Y
	if xSum < borderMarginPixels || ySum < borderMarginPixels ||
		xSum > float64(2*cloud.Width()-borderMarginPixels) || ySum > float64(2*cloud.Height()-borderMarginPixels) {
		return false
	}
	if line3D.Length() < ld.cfg.MinLengthLine3D {
		return false
	}
	reprojected, ok := ld.projectLine(line3D)
	if !ok {
		return false
	}
	reprojectedLength := reprojected.Length()
	if !similarLengths(reprojectedLength, line2D.Length()) || reprojectedLength < ld.cfg.MinPixelLengthLine3DReprojected {
		return false
	}
	cos := reprojected.Direction().Dot(line2D.Direction()) / (reprojectedLength * line2D.Length())
	return math.Abs(cos) >= minReprojectionCos
}

// CheckIfValidLineDiscont walks the pixels of the line and averages the valid points of a 3x3
// patch, kept inside the bounding box of the line, at every step. A jump of the mean by more
// than maxDiscontJump between two steps means the line bridges two surfaces.
func CheckIfValidLineDiscont(cloud *pointcloud.Organized, line lines2d.Line) bool {
	minX := int(math.Floor(math.Min(line.Start.X, line.End.X)))
	maxX := int(math.Floor(math.Max(line.Start.X, line.End.X)))
	minY := int(math.Floor(math.Min(line.Start.Y, line.End.Y)))
	maxY := int(math.Floor(math.Max(line.Start.Y, line.End.Y)))

	var previous r3.Vector
	havePrevious := false
	for _, p := range lines2d.PixelsOnLine(line) {
		var sum r3.Vector
		n := 0
		for y := utils.MaxInt(p.Y-1, minY); y <= utils.MinInt(p.Y+1, maxY); y++ {
			for x := utils.MaxInt(p.X-1, minX); x <= utils.MinInt(p.X+1, maxX); x++ {
				if !cloud.InBounds(x, y) || !cloud.IsValid(x, y) {
					continue
				}
				sum = sum.Add(cloud.At(x, y))
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum.Mul(1 / float64(n))
		if havePrevious && mean.Sub(previous).Norm() > maxDiscontJump {
			return false
		}
		previous, havePrevious = mean, true
	}
	return true
}

// RunCheckOn3DLines keeps the lines that pass CheckIfValidLineBruteForce, trimmed by it. The 2D
// lines are optional; when given they are paired by index with the 3D lines and filtered with them.
func (ld *LineDetector) RunCheckOn3DLines(
	cloud *pointcloud.Organized,
	lines2D []lines2d.Line,
	lines3D []LineWithPlanes,
) ([]lines2d.Line, []LineWithPlanes) {
	var out2D []lines2d.Line
	var out3D []LineWithPlanes
	for i, l := range lines3D {
		trimmed, ok := ld.CheckIfValidLineBruteForce(cloud, l.Line)
		if !ok {
			ld.logger.Debugw("brute force check rejected line", "start", l.Line.Start, "end", l.Line.End)
			continue
		}
		if trimmed != l.Line {
			ld.logger.Debugw("brute force check trimmed line", "start", trimmed.Start, "end", trimmed.End)
		}
		l.Line = trimmed
		out3D = append(out3D, l)
		if i < len(lines2D) {
			out2D = append(out2D, lines2D[i])
		}
	}
	return out2D, out3D
}

// RunCheckOn3DLinesWith2DInfo keeps the pairs of 2D and 3D lines that pass CheckIfValidLineWith2DInfo.
func (ld *LineDetector) RunCheckOn3DLinesWith2DInfo(
	cloud *pointcloud.Organized,
	lines2D []lines2d.Line,
	lines3D []LineWithPlanes,
) ([]lines2d.Line, []LineWithPlanes) {
	var out2D []lines2d.Line
	var out3D []LineWithPlanes
	for i, l := range lines3D {
		if i >= len(lines2D) {
			break
		}
		if !ld.CheckIfValidLineWith2DInfo(cloud, lines2D[i], l.Line) {
			ld.logger.Debugw("reprojection check rejected line", "line", lines2D[i].String())
			continue
		}
		out2D = append(out2D, lines2D[i])
		out3D = append(out3D, l)
	}
	return out2D, out3D
}

// RunCheckOn2DLines keeps the 2D lines that pass CheckIfValidLineDiscont.
func RunCheckOn2DLines(cloud *pointcloud.Organized, lines []lines2d.Line) []lines2d.Line {
	var out []lines2d.Line
	for _, l := range lines {
		if CheckIfValidLineDiscont(cloud, l) {
			out = append(out, l)
		}
	}
	return out
}
