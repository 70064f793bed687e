package detect2d

import (
	"image"
	"math"
	"sort"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

type anchor struct {
	p   image.Point
	mag float64
}

// detectEDL draws edge chains from anchor pixels by walking along the ridge of the gradient
// magnitude, then fits least squares segments to pieces of the chains.
func detectEDL(gray *image.Gray, cfg Config) []lines2d.Line {
	grad := rimage.SobelGradient(rimage.Blur(gray, cfg.BlurSigma))
	var lines []lines2d.Line
	for _, chain := range drawEdges(&grad, cfg) {
		if float64(len(chain)) < cfg.EDLMinLineLength {
			continue
		}
		for _, r := range splitChain(chain, cfg.EDLLineFitError) {
			if r[1]-r[0] < 1 {
				continue
			}
			line := fitSegment(chain[r[0] : r[1]+1])
			if line.Length() >= cfg.EDLMinLineLength {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

func drawEdges(grad *rimage.VectorField2D, cfg Config) [][]image.Point {
	w, h := grad.Width(), grad.Height()
	mag := func(x, y int) float64 {
		m := grad.MagnitudeAt(x, y)
		if m < cfg.EDLGradientThreshold {
			return 0
		}
		return m
	}

	var anchors []anchor
	for y := 1; y < h-1; y += cfg.EDLScanInterval {
		for x := 1; x < w-1; x += cfg.EDLScanInterval {
			m := mag(x, y)
			if m == 0 {
				continue
			}
			var before, after float64
			if grad.GetVec2D(x, y).IsMostlyHorizontal() {
				before, after = mag(x-1, y), mag(x+1, y)
			} else {
				before, after = mag(x, y-1), mag(x, y+1)
			}
			if m > before && m >= after && m-math.Min(before, after) >= cfg.EDLAnchorThreshold {
				anchors = append(anchors, anchor{image.Point{x, y}, m})
			}
		}
	}
	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].mag > anchors[j].mag })

	isEdge := newEdgeMap(w, h)
	var chains [][]image.Point
	for _, a := range anchors {
		if isEdge.at(a.p.X, a.p.Y) {
			continue
		}
		isEdge.set(a.p.X, a.p.Y)
		first := routeEdge(a.p, -1, mag, grad, isEdge)
		second := routeEdge(a.p, 1, mag, grad, isEdge)
		chain := make([]image.Point, 0, len(first)+len(second)+1)
		for i := len(first) - 1; i >= 0; i-- {
			chain = append(chain, first[i])
		}
		chain = append(chain, a.p)
		chains = append(chains, append(chain, second...))
	}
	return chains
}

// routeEdge walks from start along the edge through the pixel, picking the strongest of the three
// pixels ahead at every step. The walk keeps its sense while the edge orientation is unchanged and
// stops at weak gradients or pixels that are already part of an edge.
func routeEdge(
	start image.Point, sense int, mag func(x, y int) float64, grad *rimage.VectorField2D, isEdge edgeMap,
) []image.Point {
	var out []image.Point
	p := start
	var last image.Point
	first := true
	for {
		// a horizontal gradient means the edge runs vertically
		vertical := grad.GetVec2D(p.X, p.Y).IsMostlyHorizontal()
		step := last.X
		if vertical {
			step = last.Y
		}
		if first {
			step = sense
		}
		var best image.Point
		var bestMag float64
		if step != 0 {
			best, bestMag = bestAhead(p, step, vertical, mag)
		} else {
			b1, m1 := bestAhead(p, -1, vertical, mag)
			b2, m2 := bestAhead(p, 1, vertical, mag)
			best, bestMag = b1, m1
			if m2 > m1 {
				best, bestMag = b2, m2
			}
		}
		if bestMag == 0 || isEdge.at(best.X, best.Y) {
			return out
		}
		isEdge.set(best.X, best.Y)
		out = append(out, best)
		last = best.Sub(p)
		p = best
		first = false
	}
}

// bestAhead returns the strongest of the three pixels one step ahead. The straight pixel wins ties.
func bestAhead(p image.Point, step int, vertical bool, mag func(x, y int) float64) (image.Point, float64) {
	var cands [3]image.Point
	if vertical {
		cands = [3]image.Point{{p.X, p.Y + step}, {p.X - 1, p.Y + step}, {p.X + 1, p.Y + step}}
	} else {
		cands = [3]image.Point{{p.X + step, p.Y}, {p.X + step, p.Y - 1}, {p.X + step, p.Y + 1}}
	}
	best, bestMag := cands[0], mag(cands[0].X, cands[0].Y)
	for _, c := range cands[1:] {
		if m := mag(c.X, c.Y); m > bestMag {
			best, bestMag = c, m
		}
	}
	return best, bestMag
}
