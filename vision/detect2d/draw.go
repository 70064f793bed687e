package detect2d

import (
	"image"
	"image/color"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

// DrawLines draws the lines over a copy of img.
func DrawLines(img image.Image, lines []lines2d.Line, c color.Color) image.Image {
	dc := rimage.NewCanvas(img)
	for _, l := range lines {
		rimage.DrawSegment(dc, l.Start.X, l.Start.Y, l.End.X, l.End.Y, c, 1)
	}
	return dc.Image()
}
