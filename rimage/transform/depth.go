package transform

import (
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/utils"
)

// DefaultDepthScale converts millimeter depth images to meters.
const DefaultDepthScale = 0.001

// DepthToOrganizedCloud lifts every pixel of a depth image to the camera frame. Depth values are
// multiplied by depthScale to get meters. A zero depth yields the (0, 0, 0) "no depth" point.
// If img is not nil its colors are attached to the cloud; it must have the depth image's size.
func (params *PinholeCameraIntrinsics) DepthToOrganizedCloud(
	depth *image.Gray16, img image.Image, depthScale float64,
) (*pointcloud.Organized, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	if depth == nil {
		return nil, errors.New("no depth channel. Cannot project to point cloud")
	}
	bounds := depth.Bounds()
	if bounds.Dx() != params.Width || bounds.Dy() != params.Height {
		return nil, errors.Errorf("depth dimension and intrinsics don't match Depth(%d,%d) != Intrinsics(%d,%d)",
			bounds.Dx(), bounds.Dy(), params.Width, params.Height)
	}
	if img != nil && (img.Bounds().Dx() != bounds.Dx() || img.Bounds().Dy() != bounds.Dy()) {
		return nil, errors.Errorf("depth map and color dimensions don't match Depth(%d,%d) != Color(%d,%d)",
			bounds.Dx(), bounds.Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}
	cloud := pointcloud.NewOrganized(bounds.Dx(), bounds.Dy())
	utils.ParallelForEachPixel(image.Point{bounds.Dx(), bounds.Dy()}, func(x, y int) {
		d := depth.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
		if d == 0 {
			cloud.Set(x, y, r3.Vector{})
			return
		}
		cloud.Set(x, y, params.PixelToPoint(float64(x), float64(y), float64(d)*depthScale))
	})
	if img != nil {
		ib := img.Bounds()
		// the color channel is allocated lazily, so this stays sequential
		for y := 0; y < ib.Dy(); y++ {
			for x := 0; x < ib.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(ib.Min.X+x, ib.Min.Y+y)).(color.NRGBA)
				cloud.SetColor(x, y, c)
			}
		}
	}
	return cloud, nil
}

// DepthImageToGray16 converts a decoded depth image to 16 bit gray, keeping raw values.
func DepthImageToGray16(img image.Image) *image.Gray16 {
	if g, ok := img.(*image.Gray16); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.SetGray16(x, y, color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16))
		}
	}
	return out
}
