// Package pointcloud defines the organized point cloud consumed by line detection: one 3D point
// per pixel, in the camera frame, in meters.
package pointcloud

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNotOrganized is returned when a cloud cannot be laid out on a width x height grid.
var ErrNotOrganized = errors.New("point cloud is not organized")

// Organized is a dense grid of 3D points with the resolution of the image it was computed from.
// A NaN point marks invalid depth. The zero point (0, 0, 0) marks a pixel without depth
// information and must be checked separately from NaN.
type Organized struct {
	width  int
	height int
	points []r3.Vector
	colors []color.NRGBA
}

// NewOrganized returns a cloud of the given size where every point is NaN.
func NewOrganized(width, height int) *Organized {
	if width < 0 || height < 0 {
		panic(errors.Errorf("invalid organized cloud size %dx%d", width, height))
	}
	nan := math.NaN()
	points := make([]r3.Vector, width*height)
	for i := range points {
		points[i] = r3.Vector{X: nan, Y: nan, Z: nan}
	}
	return &Organized{width: width, height: height, points: points}
}

// NewOrganizedFromPoints lays the row-major points out on a width x height grid.
func NewOrganizedFromPoints(width, height int, points []r3.Vector) (*Organized, error) {
	if width <= 0 || height <= 0 || len(points) != width*height {
		return nil, errors.Wrapf(ErrNotOrganized, "%d points do not fill a %dx%d grid", len(points), width, height)
	}
	cp := make([]r3.Vector, len(points))
	copy(cp, points)
	return &Organized{width: width, height: height, points: cp}, nil
}

// Width returns the number of columns.
func (o *Organized) Width() int {
	return o.width
}

// Height returns the number of rows.
func (o *Organized) Height() int {
	return o.height
}

// Bounds returns the pixel rectangle covered by the cloud.
func (o *Organized) Bounds() image.Rectangle {
	return image.Rect(0, 0, o.width, o.height)
}

// InBounds reports whether the pixel lies on the grid.
func (o *Organized) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < o.width && y < o.height
}

// At returns the point of pixel (x, y). It panics out of bounds.
func (o *Organized) At(x, y int) r3.Vector {
	return o.points[o.index(x, y)]
}

// Set stores the point of pixel (x, y). It panics out of bounds.
func (o *Organized) Set(x, y int, pt r3.Vector) {
	o.points[o.index(x, y)] = pt
}

// IsValid reports whether the point of pixel (x, y) has no NaN component.
func (o *Organized) IsValid(x, y int) bool {
	pt := o.At(x, y)
	return !(math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsNaN(pt.Z))
}

// IsZero reports whether pixel (x, y) holds the "no depth information" sentinel.
func (o *Organized) IsZero(x, y int) bool {
	return o.At(x, y) == (r3.Vector{})
}

// HasColor reports whether colors were attached to the points.
func (o *Organized) HasColor() bool {
	return o.colors != nil
}

// Color returns the color of pixel (x, y), if the cloud has colors.
func (o *Organized) Color(x, y int) (color.NRGBA, bool) {
	if o.colors == nil {
		return color.NRGBA{}, false
	}
	return o.colors[o.index(x, y)], true
}

// SetColor stores the color of pixel (x, y), allocating the color channel on first use.
func (o *Organized) SetColor(x, y int, c color.NRGBA) {
	if o.colors == nil {
		o.colors = make([]color.NRGBA, len(o.points))
	}
	o.colors[o.index(x, y)] = c
}

// ColorImage returns the colors as an image, or nil without colors.
func (o *Organized) ColorImage() *image.NRGBA {
	if o.colors == nil {
		return nil
	}
	img := image.NewNRGBA(o.Bounds())
	for y := 0; y < o.height; y++ {
		for x := 0; x < o.width; x++ {
			img.SetNRGBA(x, y, o.colors[o.index(x, y)])
		}
	}
	return img
}

// Iterate calls fn for every pixel in row-major order until fn returns false.
func (o *Organized) Iterate(fn func(x, y int, pt r3.Vector) bool) {
	for y := 0; y < o.height; y++ {
		for x := 0; x < o.width; x++ {
			if !fn(x, y, o.points[y*o.width+x]) {
				return
			}
		}
	}
}

// ValidCount returns the number of points that are neither NaN nor the zero sentinel.
func (o *Organized) ValidCount() int {
	count := 0
	o.Iterate(func(x, y int, pt r3.Vector) bool {
		if o.IsValid(x, y) && !o.IsZero(x, y) {
			count++
		}
		return true
	})
	return count
}

func (o *Organized) index(x, y int) int {
	if !o.InBounds(x, y) {
		panic(errors.Errorf("pixel (%d, %d) outside of %dx%d cloud", x, y, o.width, o.height))
	}
	return y*o.width + x
}
