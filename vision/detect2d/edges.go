package detect2d

import (
	"image"
	"math"

	"go.viam.com/linedetection/rimage"
)

// edgeMap is a binary image of edge pixels.
type edgeMap struct {
	width, height int
	data          []bool
}

func newEdgeMap(width, height int) edgeMap {
	return edgeMap{width: width, height: height, data: make([]bool, width*height)}
}

func (e edgeMap) at(x, y int) bool {
	if x < 0 || y < 0 || x >= e.width || y >= e.height {
		return false
	}
	return e.data[y*e.width+x]
}

func (e edgeMap) set(x, y int) {
	e.data[y*e.width+x] = true
}

func (e edgeMap) points() []image.Point {
	var pts []image.Point
	for y := 0; y < e.height; y++ {
		for x := 0; x < e.width; x++ {
			if e.data[y*e.width+x] {
				pts = append(pts, image.Point{x, y})
			}
		}
	}
	return pts
}

func (e edgeMap) image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, e.width, e.height))
	for i, edge := range e.data {
		if edge {
			img.Pix[(i/e.width)*img.Stride+i%e.width] = 255
		}
	}
	return img
}

// 4-neighbors first so chains prefer straight steps.
var neighbors8 = [8]image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {1, 1}, {-1, 1}, {-1, -1}, {1, -1}}

// Canny returns the edge map of img: 255 on edges and 0 elsewhere. The image is blurred with
// sigma, gradients above high start an edge and edges continue through gradients above low.
func Canny(img *image.Gray, sigma, low, high float64) *image.Gray {
	grad := rimage.SobelGradient(rimage.Blur(img, sigma))
	return cannyEdges(&grad, low, high).image()
}

func cannyEdges(grad *rimage.VectorField2D, low, high float64) edgeMap {
	w, h := grad.Width(), grad.Height()
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			g := grad.GetVec2D(x, y)
			mag := g.Magnitude()
			if mag == 0 {
				continue
			}
			dx, dy := gradientStep(g.Direction())
			before := grad.MagnitudeAt(x-dx, y-dy)
			after := grad.MagnitudeAt(x+dx, y+dy)
			// ties along the gradient keep the first pixel only
			if mag > before && mag >= after {
				suppressed[y*w+x] = mag
			}
		}
	}

	edges := newEdgeMap(w, h)
	var stack []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if suppressed[y*w+x] >= high && !edges.at(x, y) {
				edges.set(x, y)
				stack = append(stack, image.Point{x, y})
			}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, n := range neighbors8 {
					q := p.Add(n)
					if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h || edges.at(q.X, q.Y) {
						continue
					}
					if suppressed[q.Y*w+q.X] >= low {
						edges.set(q.X, q.Y)
						stack = append(stack, q)
					}
				}
			}
		}
	}
	return edges
}

// gradientStep quantizes a gradient direction to the pixel step along it.
func gradientStep(direction float64) (int, int) {
	a := math.Mod(direction, math.Pi)
	switch {
	case a < math.Pi/8 || a >= 7*math.Pi/8:
		return 1, 0
	case a < 3*math.Pi/8:
		return 1, 1
	case a < 5*math.Pi/8:
		return 0, 1
	default:
		return -1, 1
	}
}

// traceChains links 8-connected edge pixels into ordered chains. Open chains are traced from one
// of their ends; closed ones from their first pixel in scan order.
func traceChains(edges edgeMap, minLength int) [][]image.Point {
	visited := make([]bool, len(edges.data))
	follow := func(p image.Point) []image.Point {
		var out []image.Point
		for {
			next, found := image.Point{}, false
			for _, n := range neighbors8 {
				q := p.Add(n)
				if edges.at(q.X, q.Y) && !visited[q.Y*edges.width+q.X] {
					next, found = q, true
					break
				}
			}
			if !found {
				return out
			}
			visited[next.Y*edges.width+next.X] = true
			out = append(out, next)
			p = next
		}
	}
	neighborCount := func(x, y int) int {
		count := 0
		for _, n := range neighbors8 {
			if edges.at(x+n.X, y+n.Y) {
				count++
			}
		}
		return count
	}

	var chains [][]image.Point
	for pass := 0; pass < 2; pass++ {
		for y := 0; y < edges.height; y++ {
			for x := 0; x < edges.width; x++ {
				idx := y*edges.width + x
				if !edges.data[idx] || visited[idx] {
					continue
				}
				if pass == 0 && neighborCount(x, y) > 1 {
					continue
				}
				start := image.Point{x, y}
				visited[idx] = true
				forward := follow(start)
				backward := follow(start)
				chain := make([]image.Point, 0, len(forward)+len(backward)+1)
				for i := len(backward) - 1; i >= 0; i-- {
					chain = append(chain, backward[i])
				}
				chain = append(chain, start)
				chain = append(chain, forward...)
				if len(chain) >= minLength {
					chains = append(chains, chain)
				}
			}
		}
	}
	return chains
}

// splitChain recursively splits a chain at its pixel farthest from the chord until every pixel
// is within maxDist of the chord of its piece. It returns inclusive index ranges.
func splitChain(chain []image.Point, maxDist float64) [][2]int {
	var out [][2]int
	var split func(i, j int)
	split = func(i, j int) {
		worst, idx := -1.0, -1
		for k := i + 1; k < j; k++ {
			if d := distanceToChord(chain[i], chain[j], chain[k]); d > worst {
				worst, idx = d, k
			}
		}
		if idx < 0 || worst <= maxDist {
			out = append(out, [2]int{i, j})
			return
		}
		split(i, idx)
		split(idx, j)
	}
	if len(chain) > 0 {
		split(0, len(chain)-1)
	}
	return out
}

func distanceToChord(a, b, p image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	px, py := float64(p.X-a.X), float64(p.Y-a.Y)
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return math.Hypot(px, py)
	}
	return math.Abs(dx*py-dy*px) / norm
}
