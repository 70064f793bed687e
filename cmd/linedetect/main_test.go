package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/detect2d"
	"go.viam.com/linedetection/vision/linedetection"
)

const cameraJSON = `{"width_px": 100, "height_px": 100, "fx": 100, "fy": 100, "ppx": 50, "ppy": 50}`

// writeFrame writes a 100x100 frame with a dark near half and a bright far half split at column 50.
func writeFrame(t *testing.T, dir string) (imagePath, depthPath, cameraPath string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	depth := image.NewGray16(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				img.SetNRGBA(x, y, color.NRGBA{20, 20, 20, 255})
				depth.SetGray16(x, y, color.Gray16{1000})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{230, 230, 230, 255})
				depth.SetGray16(x, y, color.Gray16{3000})
			}
		}
	}
	imagePath = filepath.Join(dir, "color.png")
	depthPath = filepath.Join(dir, "depth.png")
	cameraPath = filepath.Join(dir, "camera.json")
	test.That(t, rimage.WriteImageToFile(imagePath, img), test.ShouldBeNil)
	test.That(t, rimage.WriteImageToFile(depthPath, depth), test.ShouldBeNil)
	test.That(t, os.WriteFile(cameraPath, []byte(cameraJSON), 0o600), test.ShouldBeNil)
	return imagePath, depthPath, cameraPath
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"linedetect"}, args...))
	return out.String(), err
}

func TestParams(t *testing.T) {
	out, err := runApp(t, "params")
	test.That(t, err, test.ShouldBeNil)
	var cfg linedetection.Config
	test.That(t, json.Unmarshal([]byte(out), &cfg), test.ShouldBeNil)
	test.That(t, cfg.ShrinkCoefficient, test.ShouldEqual, linedetection.DefaultConfig().ShrinkCoefficient)
	test.That(t, cfg.NumIterRANSAC, test.ShouldEqual, linedetection.DefaultConfig().NumIterRANSAC)

	out, err = runApp(t, "params", "--2d")
	test.That(t, err, test.ShouldBeNil)
	var cfg2D detect2d.Config
	test.That(t, json.Unmarshal([]byte(out), &cfg2D), test.ShouldBeNil)
	test.That(t, cfg2D.HoughThreshold, test.ShouldEqual, detect2d.DefaultConfig().HoughThreshold)
}

func TestDetect2DCommand(t *testing.T) {
	dir := t.TempDir()
	imagePath, _, _ := writeFrame(t, dir)
	linesPath := filepath.Join(dir, "lines2d.txt")
	overlayPath := filepath.Join(dir, "overlay2d.png")

	_, err := runApp(t, "detect2d", "--image", imagePath, "--detector", "hough",
		"--output", linesPath, "--overlay", overlayPath)
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(linesPath)
	test.That(t, err, test.ShouldBeNil)
	rows := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.That(t, rows, test.ShouldNotBeEmpty)
	test.That(t, strings.Fields(rows[0]), test.ShouldHaveLength, 4)

	overlay, err := rimage.ReadImageFromFile(overlayPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, overlay.Bounds().Dx(), test.ShouldEqual, 100)

	out, err := runApp(t, "detect2d", "--image", imagePath, "--detector", "fast")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotBeEmpty)

	_, err = runApp(t, "detect2d", "--image", imagePath, "--detector", "canny")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown detector type")
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	imagePath, depthPath, cameraPath := writeFrame(t, dir)
	linesPath := filepath.Join(dir, "lines.txt")
	overlayPath := filepath.Join(dir, "overlay.png")
	histogramPath := filepath.Join(dir, "histogram.png")
	cloudPath := filepath.Join(dir, "cloud.pcd")

	out, err := runApp(t, "detect", "--image", imagePath, "--depth", depthPath, "--camera", cameraPath,
		"--depth-lines", "--output", linesPath, "--overlay", overlayPath,
		"--histogram", histogramPath, "--save-cloud", cloudPath, "--stats")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "discarded for convexity")

	f, err := os.Open(linesPath)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	_, err = linedetection.ReadLines(f)
	test.That(t, err, test.ShouldBeNil)

	for _, path := range []string{overlayPath, histogramPath} {
		img, err := rimage.ReadImageFromFile(path)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds().Empty(), test.ShouldBeFalse)
	}

	cloud, err := pointcloud.NewOrganizedFromPCDFile(cloudPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Width(), test.ShouldEqual, 100)
	test.That(t, cloud.Height(), test.ShouldEqual, 100)
	test.That(t, cloud.At(10, 50).Z, test.ShouldAlmostEqual, 1.0, 1e-6)
	test.That(t, cloud.At(90, 50).Z, test.ShouldAlmostEqual, 3.0, 1e-6)

	_, err = runApp(t, "detect", "--image", imagePath, "--cloud", cloudPath, "--camera", cameraPath, "--parallel")
	test.That(t, err, test.ShouldBeNil)

	checkedPath := filepath.Join(dir, "checked.txt")
	out, err = runApp(t, "detect", "--image", imagePath, "--cloud", cloudPath, "--camera", cameraPath,
		"--merge", "at_the_end", "--check-2d", "--check-reprojection", "--output", checkedPath, "--stats")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "discarded by checks")
	checked, err := os.Open(checkedPath)
	test.That(t, err, test.ShouldBeNil)
	defer checked.Close()
	_, err = linedetection.ReadLines(checked)
	test.That(t, err, test.ShouldBeNil)
}

func TestDetectCommandErrors(t *testing.T) {
	dir := t.TempDir()
	imagePath, depthPath, cameraPath := writeFrame(t, dir)

	_, err := runApp(t, "detect", "--image", imagePath, "--camera", cameraPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "is required")

	_, err = runApp(t, "detect", "--image", imagePath, "--camera", cameraPath,
		"--depth", depthPath, "--cloud", filepath.Join(dir, "cloud.pcd"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "only one of")

	projectionPath := filepath.Join(dir, "projection.json")
	test.That(t, os.WriteFile(projectionPath,
		[]byte(`{"projection_matrix": [[100, 0, 50, 0], [0, 100, 50, 0], [0, 0, 1, 0]]}`), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "detect", "--image", imagePath, "--camera", projectionPath, "--depth", depthPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pinhole intrinsics")

	_, err = runApp(t, "detect", "--image", imagePath, "--camera", cameraPath, "--depth", depthPath,
		"--merge", "sideways")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown merge strategy")

	configPath := filepath.Join(dir, "config.json")
	test.That(t, os.WriteFile(configPath, []byte(`{"shrink_coefficient": -1}`), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "detect", "--image", imagePath, "--camera", cameraPath, "--depth", depthPath,
		"--config", configPath)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlotProlongationHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "histogram.png")
	var h linedetection.ProlongationHistogram
	h.Add("0011")
	h.Add("0011")
	h.Add("1000")
	test.That(t, plotProlongationHistogram(&h, path), test.ShouldBeNil)
	img, err := rimage.ReadImageFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldBeGreaterThan, 100)
}
