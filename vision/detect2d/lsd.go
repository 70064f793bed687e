package detect2d

import (
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/utils"
	"go.viam.com/linedetection/vision/lines2d"
)

// detectLSD grows line support regions: connected pixels whose level line angle stays within the
// angle tolerance of the region angle. Regions whose bounding rectangle is dense enough become
// segments along their principal direction.
func detectLSD(gray *image.Gray, cfg Config) []lines2d.Line {
	scaled := rimage.Resize(gray, cfg.LSDScale)
	grad := rimage.SobelGradient(scaled)
	w, h := grad.Width(), grad.Height()
	tolerance := utils.DegToRad(cfg.LSDAngleTolerance)

	var order []int
	for i := 0; i < w*h; i++ {
		if grad.MagnitudeAt(i%w, i/w) > cfg.LSDGradientThreshold {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return grad.MagnitudeAt(order[i]%w, order[i]/w) > grad.MagnitudeAt(order[j]%w, order[j]/w)
	})

	used := make([]bool, w*h)
	var lines []lines2d.Line
	for _, seed := range order {
		if used[seed] {
			continue
		}
		region, angle := growRegion(&grad, image.Point{seed % w, seed / w}, tolerance, cfg.LSDGradientThreshold, used)
		if len(region) < cfg.LSDMinRegionSize {
			continue
		}
		line, ok := regionToLine(&grad, region, angle, cfg.LSDDensity)
		if !ok {
			continue
		}
		lines = append(lines, unscaleLine(line, cfg.LSDScale))
	}
	return lines
}

func levelLineAngle(g rimage.Vec2D) float64 {
	return g.Direction() - math.Pi/2
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return math.Abs(d)
}

func growRegion(
	grad *rimage.VectorField2D, seed image.Point, tolerance, threshold float64, used []bool,
) ([]image.Point, float64) {
	w := grad.Width()
	used[seed.Y*w+seed.X] = true
	angle := levelLineAngle(grad.Get(seed))
	sumCos, sumSin := math.Cos(angle), math.Sin(angle)
	region := []image.Point{seed}
	for i := 0; i < len(region); i++ {
		for _, n := range neighbors8 {
			q := region[i].Add(n)
			if !grad.InBounds(q.X, q.Y) || used[q.Y*w+q.X] || grad.MagnitudeAt(q.X, q.Y) <= threshold {
				continue
			}
			qAngle := levelLineAngle(grad.Get(q))
			if angleDiff(qAngle, angle) > tolerance {
				continue
			}
			used[q.Y*w+q.X] = true
			region = append(region, q)
			sumCos += math.Cos(qAngle)
			sumSin += math.Sin(qAngle)
			angle = math.Atan2(sumSin, sumCos)
		}
	}
	return region, angle
}

// regionToLine fits the gradient weighted rectangle around the region and returns its center
// line, oriented along the region angle. Regions too sparse for their rectangle are rejected.
func regionToLine(grad *rimage.VectorField2D, region []image.Point, angle, minDensity float64) (lines2d.Line, bool) {
	weights := make([]float64, len(region))
	var center r2.Point
	var total float64
	for i, p := range region {
		weights[i] = grad.MagnitudeAt(p.X, p.Y)
		total += weights[i]
		center = center.Add(r2.Point{X: float64(p.X), Y: float64(p.Y)}.Mul(weights[i]))
	}
	if total == 0 {
		return lines2d.Line{}, false
	}
	center = center.Mul(1 / total)
	dir := principalDirection(region, weights, center)
	if dir.Dot(r2.Point{X: math.Cos(angle), Y: math.Sin(angle)}) < 0 {
		dir = dir.Mul(-1)
	}
	perp := dir.Ortho()

	lMin, lMax := math.Inf(1), math.Inf(-1)
	wMin, wMax := math.Inf(1), math.Inf(-1)
	for _, p := range region {
		d := r2.Point{X: float64(p.X), Y: float64(p.Y)}.Sub(center)
		l, wd := d.Dot(dir), d.Dot(perp)
		lMin, lMax = math.Min(lMin, l), math.Max(lMax, l)
		wMin, wMax = math.Min(wMin, wd), math.Max(wMax, wd)
	}
	length := lMax - lMin
	if length <= 0 {
		return lines2d.Line{}, false
	}
	density := float64(len(region)) / ((length + 1) * (wMax - wMin + 1))
	if density < minDensity {
		return lines2d.Line{}, false
	}
	return lines2d.Line{Start: center.Add(dir.Mul(lMin)), End: center.Add(dir.Mul(lMax))}, true
}

// unscaleLine maps pixel centers of a resized image back to the original image.
func unscaleLine(l lines2d.Line, scale float64) lines2d.Line {
	if scale == 1 {
		return l
	}
	back := func(p r2.Point) r2.Point {
		return r2.Point{X: (p.X+0.5)/scale - 0.5, Y: (p.Y+0.5)/scale - 0.5}
	}
	return lines2d.Line{Start: back(l.Start), End: back(l.End)}
}
