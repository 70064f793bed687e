package detect2d

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config holds the parameters of every 2D detector. Gradient thresholds are in units of the
// 3x3 Sobel response on 8 bit images, whose maximum is about 1442.
type Config struct {
	// BlurSigma smooths the image before edges are computed; 0 disables the blur.
	BlurSigma float64 `json:"blur_sigma"`

	// Canny hysteresis thresholds used by the Hough detector.
	CannyThreshold1 float64 `json:"canny_edges_threshold1"`
	CannyThreshold2 float64 `json:"canny_edges_threshold2"`

	// Hough accumulator resolution (pixels, radians) and segment extraction.
	HoughRho           float64 `json:"hough_detector_rho"`
	HoughTheta         float64 `json:"hough_detector_theta"`
	HoughThreshold     int     `json:"hough_detector_threshold"`
	HoughMinLineLength float64 `json:"hough_detector_min_line_length"`
	HoughMaxLineGap    float64 `json:"hough_detector_max_line_gap"`

	// Line segment detector region growing.
	LSDScale             float64 `json:"lsd_scale"`
	LSDGradientThreshold float64 `json:"lsd_gradient_threshold"`
	LSDAngleTolerance    float64 `json:"lsd_angle_tolerance_degrees"`
	LSDDensity           float64 `json:"lsd_density"`
	LSDMinRegionSize     int     `json:"lsd_min_region_size"`

	// Edge drawing lines.
	EDLGradientThreshold float64 `json:"edl_gradient_threshold"`
	EDLAnchorThreshold   float64 `json:"edl_anchor_threshold"`
	EDLScanInterval      int     `json:"edl_scan_interval"`
	EDLMinLineLength     float64 `json:"edl_min_line_length"`
	EDLLineFitError      float64 `json:"edl_line_fit_error"`

	// Fast line detector.
	FLDCannyThreshold1   float64 `json:"fld_canny_threshold1"`
	FLDCannyThreshold2   float64 `json:"fld_canny_threshold2"`
	FLDLengthThreshold   float64 `json:"fld_length_threshold"`
	FLDDistanceThreshold float64 `json:"fld_distance_threshold"`

	// DepthScale maps raw depth values to 8 bit before detecting lines on a depth image.
	DepthScale float64 `json:"depth_scale"`
}

// DefaultConfig returns parameters that work on VGA sized indoor images.
func DefaultConfig() Config {
	return Config{
		BlurSigma: 1,

		CannyThreshold1: 50,
		CannyThreshold2: 200,

		HoughRho:           1,
		HoughTheta:         math.Pi / 180,
		HoughThreshold:     10,
		HoughMinLineLength: 10,
		HoughMaxLineGap:    5,

		LSDScale:             0.8,
		LSDGradientThreshold: 21,
		LSDAngleTolerance:    22.5,
		LSDDensity:           0.7,
		LSDMinRegionSize:     10,

		EDLGradientThreshold: 36,
		EDLAnchorThreshold:   8,
		EDLScanInterval:      1,
		EDLMinLineLength:     15,
		EDLLineFitError:      1,

		FLDCannyThreshold1:   50,
		FLDCannyThreshold2:   50,
		FLDLengthThreshold:   10,
		FLDDistanceThreshold: math.Sqrt2,

		DepthScale: 0.1,
	}
}

// CheckValid reports every parameter the detectors cannot work with.
func (cfg *Config) CheckValid() error {
	var err error
	if cfg.BlurSigma < 0 {
		err = multierr.Append(err, errors.Errorf("blur_sigma cannot be less than 0, got %v", cfg.BlurSigma))
	}
	if cfg.CannyThreshold1 > cfg.CannyThreshold2 {
		err = multierr.Append(err, errors.New("canny_edges_threshold1 cannot exceed canny_edges_threshold2"))
	}
	if cfg.FLDCannyThreshold1 > cfg.FLDCannyThreshold2 {
		err = multierr.Append(err, errors.New("fld_canny_threshold1 cannot exceed fld_canny_threshold2"))
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"hough_detector_rho", cfg.HoughRho},
		{"hough_detector_theta", cfg.HoughTheta},
		{"lsd_scale", cfg.LSDScale},
		{"lsd_angle_tolerance_degrees", cfg.LSDAngleTolerance},
		{"edl_line_fit_error", cfg.EDLLineFitError},
		{"fld_distance_threshold", cfg.FLDDistanceThreshold},
		{"depth_scale", cfg.DepthScale},
	}
	for _, p := range positive {
		if p.value <= 0 {
			err = multierr.Append(err, errors.Errorf("%s must be positive, got %v", p.name, p.value))
		}
	}
	if cfg.HoughThreshold <= 0 {
		err = multierr.Append(err, errors.Errorf("hough_detector_threshold must be positive, got %d", cfg.HoughThreshold))
	}
	if cfg.EDLScanInterval <= 0 {
		err = multierr.Append(err, errors.Errorf("edl_scan_interval must be positive, got %d", cfg.EDLScanInterval))
	}
	if cfg.LSDDensity < 0 || cfg.LSDDensity > 1 {
		err = multierr.Append(err, errors.Errorf("lsd_density must be in [0, 1], got %v", cfg.LSDDensity))
	}
	if cfg.HoughMinLineLength < 0 || cfg.HoughMaxLineGap < 0 || cfg.EDLMinLineLength < 0 || cfg.FLDLengthThreshold < 0 {
		err = multierr.Append(err, errors.New("line lengths and gaps cannot be less than 0"))
	}
	return err
}

// NewConfigFromJSONFile reads a JSON file over the default configuration.
func NewConfigFromJSONFile(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "error reading JSON file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "error parsing JSON string")
	}
	if err := cfg.CheckValid(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid 2D detector config in %q", path)
	}
	return cfg, nil
}
