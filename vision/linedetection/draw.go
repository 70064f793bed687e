package linedetection

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

var typeHues = [...]float64{Discont: 0, Plane: 120, Edge: 220, Intersect: 55}

// Color returns the overlay color of the line type.
func (t LineType) Color() color.Color {
	if t < 0 || int(t) >= len(typeHues) {
		return color.White
	}
	return colorful.Hsv(typeHues[t], 0.85, 0.95).Clamped()
}

// DrawLinesByType draws every 2D line in the color of the type of its 3D line and labels it with
// the type name at its center. lines2D and lines3D are the parallel outputs of the projection.
func DrawLinesByType(img image.Image, lines2D []lines2d.Line, lines3D []LineWithPlanes) (image.Image, error) {
	if len(lines2D) != len(lines3D) {
		return nil, errors.Errorf("got %d 2D lines for %d 3D lines", len(lines2D), len(lines3D))
	}
	dc := rimage.NewCanvas(img)
	for i, l := range lines2D {
		c := lines3D[i].Type.Color()
		rimage.DrawSegment(dc, l.Start.X, l.Start.Y, l.End.X, l.End.Y, c, 2)
		center := l.Start.Add(l.End).Mul(0.5)
		rimage.DrawString(dc, lines3D[i].Type.String(), image.Point{int(center.X) + 3, int(center.Y)}, c, 10)
	}
	return dc.Image(), nil
}
