package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/linedetection/utils"
)

// Vec2D represents the gradient of an image at a point.
// The gradient has both a magnitude and direction.
// Magnitude has values [0, infinity) and direction is [0, 2pi).
type Vec2D struct {
	magnitude float64
	direction float64
}

// NewVec2D returns the gradient with the given magnitude and direction.
func NewVec2D(magnitude, direction float64) Vec2D {
	return Vec2D{magnitude, radZeroTo2Pi(direction)}
}

// Magnitude of the gradient.
func (g Vec2D) Magnitude() float64 {
	return g.magnitude
}

// Direction of the gradient in radians, pointing from dark to bright.
func (g Vec2D) Direction() float64 {
	return g.direction
}

// IsMostlyHorizontal reports whether the gradient points more along x than along y, i.e. the
// edge through the pixel runs mostly vertically.
func (g Vec2D) IsMostlyHorizontal() bool {
	return math.Abs(math.Cos(g.direction)) >= math.Abs(math.Sin(g.direction))
}

// VectorField2D stores all the gradient vectors of the image
// allowing one to retrieve the gradient for any given (x,y) point.
type VectorField2D struct {
	width  int
	height int

	data         []Vec2D
	maxMagnitude float64
}

func (vf *VectorField2D) kxy(x, y int) int {
	return (y * vf.width) + x
}

// Width of the field.
func (vf *VectorField2D) Width() int {
	return vf.width
}

// Height of the field.
func (vf *VectorField2D) Height() int {
	return vf.height
}

// InBounds reports whether (x, y) lies in the field.
func (vf *VectorField2D) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < vf.width && y < vf.height
}

// Get returns the gradient at p.
func (vf *VectorField2D) Get(p image.Point) Vec2D {
	return vf.data[vf.kxy(p.X, p.Y)]
}

// GetVec2D returns the gradient at (x, y).
func (vf *VectorField2D) GetVec2D(x, y int) Vec2D {
	return vf.data[vf.kxy(x, y)]
}

// MagnitudeAt returns the gradient magnitude at (x, y), or 0 outside the field.
func (vf *VectorField2D) MagnitudeAt(x, y int) float64 {
	if !vf.InBounds(x, y) {
		return 0
	}
	return vf.data[vf.kxy(x, y)].magnitude
}

// Set stores the gradient at (x, y).
func (vf *VectorField2D) Set(x, y int, val Vec2D) {
	vf.data[vf.kxy(x, y)] = val
	vf.maxMagnitude = math.Max(math.Abs(val.Magnitude()), vf.maxMagnitude)
}

// MaxMagnitude returns the largest magnitude stored in the field.
func (vf *VectorField2D) MaxMagnitude() float64 {
	return vf.maxMagnitude
}

// MakeEmptyVectorField2D returns a field of zero gradients.
func MakeEmptyVectorField2D(width, height int) VectorField2D {
	vf := VectorField2D{
		width:        width,
		height:       height,
		data:         make([]Vec2D, width*height),
		maxMagnitude: 0.0,
	}

	return vf
}

// MagnitudeField gets all the magnitudes of the gradient in the image as a mat.Dense.
func (vf *VectorField2D) MagnitudeField() *mat.Dense {
	h, w := vf.Height(), vf.Width()
	mag := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mag = append(mag, vf.GetVec2D(x, y).Magnitude())
		}
	}
	return mat.NewDense(h, w, mag)
}

// MagnitudePicture creates a picture of the magnitude that the gradients point to in the original image.
func (vf *VectorField2D) MagnitudePicture() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, vf.Width(), vf.Height()))
	if vf.maxMagnitude == 0 {
		return img
	}
	for x := 0; x < vf.Width(); x++ {
		for y := 0; y < vf.Height(); y++ {
			g := vf.GetVec2D(x, y)
			val := uint8((g.Magnitude() / vf.maxMagnitude) * 255)
			img.SetGray(x, y, color.Gray{val})
		}
	}
	return img
}

// DirectionPicture creates a picture of the direction that the gradients point to in the original image.
func (vf *VectorField2D) DirectionPicture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, vf.Width(), vf.Height()))
	for x := 0; x < vf.Width(); x++ {
		for y := 0; y < vf.Height(); y++ {
			g := vf.GetVec2D(x, y)
			if g.Magnitude() == 0 {
				continue
			}
			deg := g.Direction() * (180. / math.Pi)
			img.Set(x, y, colorful.Hsv(deg, 1.0, 1.0).Clamped())
		}
	}
	return img
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// SobelGradient applies the 3x3 Sobel operator to every pixel of the image. Pixels outside the
// image are replaced by the closest border pixel so the field has the size of the image.
func SobelGradient(img *image.Gray) VectorField2D {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	vf := MakeEmptyVectorField2D(width, height)
	utils.ParallelForEachPixel(image.Point{width, height}, func(x, y int) {
		var sX, sY float64
		for j := -1; j <= 1; j++ {
			for i := -1; i <= 1; i++ {
				xx := utils.Clamp(x+i, 0, width-1)
				yy := utils.Clamp(y+j, 0, height-1)
				v := float64(img.GrayAt(bounds.Min.X+xx, bounds.Min.Y+yy).Y)
				sX += sobelX[j+1][i+1] * v
				sY += sobelY[j+1][i+1] * v
			}
		}
		mag, dir := getMagnitudeAndDirection(sX, sY)
		// every goroutine writes its own pixel; the maximum is taken afterwards
		vf.data[vf.kxy(x, y)] = Vec2D{mag, dir}
	})
	for _, g := range vf.data {
		vf.maxMagnitude = math.Max(vf.maxMagnitude, g.magnitude)
	}
	return vf
}

func getMagnitudeAndDirection(x, y float64) (float64, float64) {
	mag := math.Sqrt(x*x + y*y)
	// get direction - make angle so that it is between [0, 2pi] rather than [-pi, pi]
	return mag, radZeroTo2Pi(math.Atan2(y, x))
}

// changes the radians from between -pi,pi to 0,2pi
func radZeroTo2Pi(rad float64) float64 {
	if rad < 0. {
		rad += 2. * math.Pi
	}
	return rad
}
