package lines2d

import (
	"image"
	"math"

	"go.viam.com/linedetection/utils"
)

// PixelsOnLine returns the 8-connected pixels from the pixel containing the start of the line to
// the pixel containing its end, both included.
func PixelsOnLine(l Line) []image.Point {
	p0 := image.Point{X: int(math.Floor(l.Start.X)), Y: int(math.Floor(l.Start.Y))}
	p1 := image.Point{X: int(math.Floor(l.End.X)), Y: int(math.Floor(l.End.Y))}
	return Bresenham(p0, p1)
}

// Bresenham walks the pixels between two pixels, both included.
func Bresenham(p0, p1 image.Point) []image.Point {
	dx := utils.AbsInt(p1.X - p0.X)
	dy := -utils.AbsInt(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	pixels := make([]image.Point, 0, utils.MaxInt(dx, -dy)+1)
	err := dx + dy
	x, y := p0.X, p0.Y
	for {
		pixels = append(pixels, image.Point{X: x, Y: y})
		if x == p1.X && y == p1.Y {
			return pixels
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}
