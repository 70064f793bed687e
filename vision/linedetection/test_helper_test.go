package linedetection

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/linedetection/logging"
	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/rimage/transform"
	"go.viam.com/linedetection/spatialmath"
)

// testIntrinsics is a 100x100 camera with its principal point in the middle, so that pixel
// (x, y) at depth z is the point ((x - 50) z / 100, (y - 50) z / 100, z).
var testIntrinsics = transform.PinholeCameraIntrinsics{Width: 100, Height: 100, Fx: 100, Fy: 100, Ppx: 50, Ppy: 50}

func newTestDetector(t *testing.T) *LineDetector {
	t.Helper()
	ld, err := NewLineDetector(DefaultConfig(), testIntrinsics.ProjectionMatrix(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return ld
}

// newDepthCloud builds the cloud seen by the test camera for a depth per pixel. A NaN depth
// leaves the pixel invalid.
func newDepthCloud(depth func(x, y int) float64) *pointcloud.Organized {
	cloud := pointcloud.NewOrganized(testIntrinsics.Width, testIntrinsics.Height)
	for y := 0; y < testIntrinsics.Height; y++ {
		for x := 0; x < testIntrinsics.Width; x++ {
			z := depth(x, y)
			if math.IsNaN(z) {
				continue
			}
			cloud.Set(x, y, testIntrinsics.PixelToPoint(float64(x), float64(y), z))
		}
	}
	return cloud
}

// stepCloud has a foreground plane at z = 1 left of column 50 and a background plane at z = 3.
func stepCloud() *pointcloud.Organized {
	return newDepthCloud(func(x, _ int) float64 {
		if x < 50 {
			return 1
		}
		return 3
	})
}

// ridgeCloud has the planes z - x = 1 right of column 50 and z + x = 1 left of it, meeting
// in a ridge at z = 1 that points at the camera.
func ridgeCloud() *pointcloud.Organized {
	return newDepthCloud(func(x, _ int) float64 {
		u := float64(x-50) / 100
		if u >= 0 {
			return 1 / (1 - u)
		}
		return 1 / (1 + u)
	})
}

// valleyCloud has the planes z - x = 1 left of column 50 and z + x = 1 right of it, meeting
// in a valley at z = 1. Rows below 75 have no depth.
func valleyCloud() *pointcloud.Organized {
	return newDepthCloud(func(x, y int) float64 {
		if y > 75 {
			return math.NaN()
		}
		u := float64(x-50) / 100
		if u < 0 {
			return 1 / (1 - u)
		}
		return 1 / (1 + u)
	})
}

func flatCloud() *pointcloud.Organized {
	return newDepthCloud(func(_, _ int) float64 { return 1 })
}

// patchPointsOf collects the valid points of a block of pixels.
func patchPointsOf(cloud *pointcloud.Organized, minX, maxX, minY, maxY int) []r3.Vector {
	var pts []r3.Vector
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if cloud.IsValid(x, y) {
				pts = append(pts, cloud.At(x, y))
			}
		}
	}
	return pts
}

func nanPoint() r3.Vector {
	return r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}

// stepLine is a vertical 3D line at depth 1 in front of the camera.
func stepLine(y0, y1 float64) spatialmath.LineSegment {
	return spatialmath.LineSegment{Start: r3.Vector{Y: y0, Z: 1}, End: r3.Vector{Y: y1, Z: 1}}
}
