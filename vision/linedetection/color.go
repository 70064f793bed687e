package linedetection

import (
	"image"
	"image/color"

	"go.viam.com/linedetection/pointcloud"
)

// meanColor averages the colours of the pixels inside the cloud. It returns the zero colour if
// no pixel is inside.
func meanColor(cloud *pointcloud.Organized, pixels []image.Point) color.NRGBA {
	var r, g, b, n int
	for _, p := range pixels {
		if !cloud.InBounds(p.X, p.Y) {
			continue
		}
		c, ok := cloud.Color(p.X, p.Y)
		if !ok {
			continue
		}
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
		n++
	}
	if n == 0 {
		return color.NRGBA{}
	}
	return color.NRGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}
