// Package detect2d finds straight line segments in 2D images. The segments are the input of the
// 3D line detector, which lifts them using an organized point cloud.
package detect2d

import (
	"image"
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

// DetectorType selects the 2D line detector.
type DetectorType int

// The available detectors. The numbering is used by the command line and config files.
const (
	LSD DetectorType = iota
	EDL
	FAST
	HOUGH
)

var detectorNames = [...]string{"LSD", "EDL", "FAST", "HOUGH"}

func (d DetectorType) String() string {
	if d < 0 || int(d) >= len(detectorNames) {
		return "UNKNOWN"
	}
	return detectorNames[d]
}

// ParseDetectorType accepts a detector name (any case) or its number.
func ParseDetectorType(s string) (DetectorType, error) {
	s = strings.TrimSpace(s)
	for i, name := range detectorNames {
		if strings.EqualFold(s, name) {
			return DetectorType(i), nil
		}
	}
	if len(s) == 1 && s[0] >= '0' && int(s[0]-'0') < len(detectorNames) {
		return DetectorType(s[0] - '0'), nil
	}
	return LSD, errors.Errorf("unknown detector type %q", s)
}

// Detect returns the line segments found in img. Color images are converted to grayscale first.
func Detect(img image.Image, detector DetectorType, cfg Config) ([]lines2d.Line, error) {
	if img == nil {
		return nil, errors.New("no image to detect lines in")
	}
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid 2D detector config")
	}
	gray := rimage.ToGray(img)
	if gray.Bounds().Empty() {
		return nil, nil
	}
	switch detector {
	case LSD:
		return detectLSD(gray, cfg), nil
	case EDL:
		return detectEDL(gray, cfg), nil
	case FAST:
		return detectFLD(gray, cfg), nil
	case HOUGH:
		return detectHough(gray, cfg), nil
	default:
		return nil, errors.Errorf("unknown detector type %d", int(detector))
	}
}

// DetectOnDepth scales the depth image by cfg.DepthScale to 8 bit and detects lines in it.
// Lines found this way follow depth discontinuities that have no texture in the color image.
func DetectOnDepth(depth *image.Gray16, detector DetectorType, cfg Config) ([]lines2d.Line, error) {
	if depth == nil {
		return nil, errors.New("no depth image to detect lines in")
	}
	if cfg.DepthScale <= 0 {
		return nil, errors.Errorf("depth_scale must be positive, got %v", cfg.DepthScale)
	}
	return Detect(rimage.DepthToGray(depth, cfg.DepthScale), detector, cfg)
}
