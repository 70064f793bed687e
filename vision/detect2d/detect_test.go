package detect2d

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/linedetection/vision/lines2d"
)

// stepImage is black left of column edgeX and white from it on.
func stepImage(width, height, edgeX int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := edgeX; x < width; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func squareImage(size, minXY, maxXY int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := minXY; y < maxXY; y++ {
		for x := minXY; x < maxXY; x++ {
			img.SetGray(x, y, color.Gray{255})
		}
	}
	return img
}

func uniformImage(size int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

func findVertical(lines []lines2d.Line, x, tolerance, minLength float64) bool {
	for _, l := range lines {
		d := l.Direction()
		if math.Abs(d.X) <= 3 && math.Abs(d.Y) >= minLength &&
			math.Abs(l.Start.X-x) <= tolerance && math.Abs(l.End.X-x) <= tolerance {
			return true
		}
	}
	return false
}

func findHorizontal(lines []lines2d.Line, y, tolerance, minLength float64) bool {
	var swapped []lines2d.Line
	for _, l := range lines {
		swapped = append(swapped, lines2d.NewLine(l.Start.Y, l.Start.X, l.End.Y, l.End.X))
	}
	return findVertical(swapped, y, tolerance, minLength)
}

func TestDetectorTypes(t *testing.T) {
	test.That(t, LSD.String(), test.ShouldEqual, "LSD")
	test.That(t, HOUGH.String(), test.ShouldEqual, "HOUGH")
	test.That(t, DetectorType(9).String(), test.ShouldEqual, "UNKNOWN")

	d, err := ParseDetectorType("edl")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, EDL)
	d, err = ParseDetectorType("2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, FAST)
	_, err = ParseDetectorType("canny")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown detector type")
	_, err = ParseDetectorType("7")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigCheckValid(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)

	cfg.CannyThreshold1 = 300
	cfg.HoughTheta = 0
	cfg.EDLScanInterval = 0
	cfg.LSDDensity = 2
	err := cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "canny_edges_threshold1 cannot exceed")
	test.That(t, err.Error(), test.ShouldContainSubstring, "hough_detector_theta must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "edl_scan_interval")
	test.That(t, err.Error(), test.ShouldContainSubstring, "lsd_density")

	_, err = Detect(stepImage(10, 10, 5), LSD, cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid 2D detector config")
}

func TestDetectStep(t *testing.T) {
	img := stepImage(100, 100, 30)
	for _, detector := range []DetectorType{LSD, EDL, FAST, HOUGH} {
		t.Run(detector.String(), func(t *testing.T) {
			lines, err := Detect(img, detector, DefaultConfig())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, lines, test.ShouldNotBeEmpty)
			test.That(t, findVertical(lines, 29.5, 2.5, 60), test.ShouldBeTrue)
		})
	}
}

func TestDetectUniform(t *testing.T) {
	img := uniformImage(50, 128)
	for _, detector := range []DetectorType{LSD, EDL, FAST, HOUGH} {
		lines, err := Detect(img, detector, DefaultConfig())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, lines, test.ShouldBeEmpty)
	}
}

func TestDetectErrors(t *testing.T) {
	_, err := Detect(nil, LSD, DefaultConfig())
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Detect(stepImage(10, 10, 5), DetectorType(7), DefaultConfig())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown detector type 7")
	_, err = DetectOnDepth(nil, LSD, DefaultConfig())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHoughSquare(t *testing.T) {
	lines, err := Detect(squareImage(100, 30, 70), HOUGH, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, findVertical(lines, 29.5, 2.5, 30), test.ShouldBeTrue)
	test.That(t, findVertical(lines, 69.5, 2.5, 30), test.ShouldBeTrue)
	test.That(t, findHorizontal(lines, 29.5, 2.5, 30), test.ShouldBeTrue)
	test.That(t, findHorizontal(lines, 69.5, 2.5, 30), test.ShouldBeTrue)
}

func TestDetectOnDepth(t *testing.T) {
	depth := image.NewGray16(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			v := uint16(500)
			if x >= 30 {
				v = 2500
			}
			depth.SetGray16(x, y, color.Gray16{v})
		}
	}
	lines, err := DetectOnDepth(depth, HOUGH, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, findVertical(lines, 29.5, 2.5, 60), test.ShouldBeTrue)

	cfg := DefaultConfig()
	cfg.DepthScale = 0
	_, err = DetectOnDepth(depth, HOUGH, cfg)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewConfigFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "detector.json")
	test.That(t, os.WriteFile(path, []byte(`{"hough_detector_threshold": 25, "blur_sigma": 0}`), 0o600), test.ShouldBeNil)
	cfg, err := NewConfigFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.HoughThreshold, test.ShouldEqual, 25)
	test.That(t, cfg.BlurSigma, test.ShouldEqual, 0)
	test.That(t, cfg.CannyThreshold2, test.ShouldEqual, 200)

	test.That(t, os.WriteFile(path, []byte(`{"lsd_scale": -1}`), 0o600), test.ShouldBeNil)
	_, err = NewConfigFromJSONFile(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "lsd_scale must be positive")

	test.That(t, os.WriteFile(path, []byte(`{`), 0o600), test.ShouldBeNil)
	_, err = NewConfigFromJSONFile(path)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error parsing JSON string")

	_, err = NewConfigFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
