package linedetection

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/linedetection/vision/lines2d"
	"go.viam.com/linedetection/vision/segmentation"
)

// MergeStrategy selects how Detect3DLines merges near duplicate 2D lines before lifting them.
type MergeStrategy string

// The merge strategies. The empty strategy does not merge.
const (
	MergeNone     MergeStrategy = "none"
	MergeAtTheEnd MergeStrategy = "at_the_end"
	MergeOnTheFly MergeStrategy = "on_the_fly"
)

// ParseMergeStrategy returns the strategy with the given name.
func ParseMergeStrategy(name string) (MergeStrategy, error) {
	switch s := MergeStrategy(name); s {
	case "", MergeNone:
		return MergeNone, nil
	case MergeAtTheEnd, MergeOnTheFly:
		return s, nil
	default:
		return "", errors.Errorf("unknown merge strategy %q", name)
	}
}

// Config holds every threshold of the line detector. Lengths are in meters unless a field says
// pixels. A Config is read-only while lines are being detected and can be shared across frames.
type Config struct {
	// Rectangle patches sampled on both sides of a 2D line.
	RectangleOffsetPixels float64 `json:"rectangle_offset_pixels"`
	MaxRelativeRectSize   float64 `json:"max_relative_rect_size"`
	MaxAbsoluteRectSize   float64 `json:"max_absolute_rect_size"`

	// MaxDistBetweenPlanes separates a surface line from a discontinuity: the means of the two
	// inlier sets must be closer than this along both plane normals.
	MaxDistBetweenPlanes float64 `json:"max_dist_between_planes"`

	// RANSAC plane fitting.
	NumIterRANSAC          int     `json:"num_iter_ransac"`
	MaxErrorInlierRANSAC   float64 `json:"max_error_inlier_ransac"`
	InlierMaxRANSAC        float64 `json:"inlier_max_ransac"`
	MinInlierRANSAC        float64 `json:"min_inlier_ransac"`
	MinNumInliers          int     `json:"min_num_inliers"`
	MaxDiscontInComponents float64 `json:"max_discont_in_point_to_mean_distance_connected_components"`
	Seed                   int64   `json:"seed"`

	// Degenerate triangle rejection of the exact three point plane fit.
	MinDistanceBetweenPointsHessian float64 `json:"min_distance_between_points_hessian"`
	MaxCosThetaHessianComputation   float64 `json:"max_cos_theta_hessian_computation"`

	// Validity checks of the 3D lines.
	MinPointsInLine                   int     `json:"min_points_in_line"`
	MaxDeviationInlierLineCheck       float64 `json:"max_deviation_inlier_line_check"`
	MinLengthLine3D                   float64 `json:"min_length_line_3D"`
	MinPixelLengthLine3DReprojected   float64 `json:"min_pixel_length_line_3D_reprojected"`
	MaxRatingValidLine                float64 `json:"max_rating_valid_line"`
	MinPointsInRect                   int     `json:"min_points_in_rect"`
	ExtensionLengthForEdgeOrIntersect float64 `json:"extension_length_for_edge_or_intersection"`
	MinPointsInProlongedRect          int     `json:"min_points_in_prolonged_rect"`
	MaxPointsForEmptyRectangle        int     `json:"max_points_for_empty_rectangle"`

	// Lifting.
	ShrinkCoefficient float64 `json:"shrink_coefficient"`
	// Workers bounds the goroutines of the parallel lifter; 0 uses one per CPU.
	Workers int `json:"workers"`

	// Steps of Detect3DLines around the lifter.
	MergeStrategy           MergeStrategy `json:"merge_strategy"`
	MergeMinCosSquared      float64       `json:"merge_min_cos_squared"`
	MergeMaxSquaredDistance float64       `json:"merge_max_squared_distance"`
	CheckDiscont2D          bool          `json:"check_discont_2d"`
	CheckBruteForce         bool          `json:"check_brute_force"`
	CheckReprojection       bool          `json:"check_reprojection"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	ransac := segmentation.DefaultRANSACConfig()
	rect := lines2d.DefaultRectangleConfig()
	equality := lines2d.DefaultEqualityConfig()
	return Config{
		RectangleOffsetPixels: rect.Offset,
		MaxRelativeRectSize:   rect.MaxRelativeSize,
		MaxAbsoluteRectSize:   rect.MaxAbsoluteSize,
		MaxDistBetweenPlanes:  0.2,

		NumIterRANSAC:          ransac.Iterations,
		MaxErrorInlierRANSAC:   ransac.MaxInlierError,
		InlierMaxRANSAC:        ransac.EarlyStopInlierFraction,
		MinInlierRANSAC:        ransac.MinInlierFraction,
		MinNumInliers:          ransac.MinInliers,
		MaxDiscontInComponents: ransac.MaxClusterGap,
		Seed:                   ransac.Seed,

		MinDistanceBetweenPointsHessian: ransac.MinSampleDistance,
		MaxCosThetaHessianComputation:   ransac.MaxSampleCosTheta,

		MinPointsInLine:                   10,
		MaxDeviationInlierLineCheck:       0.02,
		MinLengthLine3D:                   0.05,
		MinPixelLengthLine3DReprojected:   10,
		MaxRatingValidLine:                1e8,
		MinPointsInRect:                   10,
		ExtensionLengthForEdgeOrIntersect: 0.1,
		MinPointsInProlongedRect:          10,
		MaxPointsForEmptyRectangle:        10,

		ShrinkCoefficient: 0.8,

		MergeStrategy:           MergeNone,
		MergeMinCosSquared:      equality.MinCosSquared,
		MergeMaxSquaredDistance: equality.MaxSquaredDistance,
		CheckBruteForce:         true,
	}
}

// RANSAC returns the plane estimator parameters.
func (cfg *Config) RANSAC() segmentation.RANSACConfig {
	return segmentation.RANSACConfig{
		Iterations:              cfg.NumIterRANSAC,
		MaxInlierError:          cfg.MaxErrorInlierRANSAC,
		EarlyStopInlierFraction: cfg.InlierMaxRANSAC,
		MinInlierFraction:       cfg.MinInlierRANSAC,
		MinInliers:              cfg.MinNumInliers,
		MaxClusterGap:           cfg.MaxDiscontInComponents,
		MinSampleDistance:       cfg.MinDistanceBetweenPointsHessian,
		MaxSampleCosTheta:       cfg.MaxCosThetaHessianComputation,
		Seed:                    cfg.Seed,
	}
}

// Rectangles returns the patch sizes.
func (cfg *Config) Rectangles() lines2d.RectangleConfig {
	return lines2d.RectangleConfig{
		Offset:          cfg.RectangleOffsetPixels,
		MaxRelativeSize: cfg.MaxRelativeRectSize,
		MaxAbsoluteSize: cfg.MaxAbsoluteRectSize,
	}
}

// Equality returns the thresholds two 2D lines must meet to be merged.
func (cfg *Config) Equality() lines2d.EqualityConfig {
	return lines2d.EqualityConfig{
		MinCosSquared:      cfg.MergeMinCosSquared,
		MaxSquaredDistance: cfg.MergeMaxSquaredDistance,
	}
}

// CheckValid reports every field with a value the detector cannot work with.
func (cfg *Config) CheckValid() error {
	ransac := cfg.RANSAC()
	err := ransac.CheckValid()
	positive := []struct {
		name  string
		value float64
	}{
		{"max_relative_rect_size", cfg.MaxRelativeRectSize},
		{"max_absolute_rect_size", cfg.MaxAbsoluteRectSize},
		{"max_dist_between_planes", cfg.MaxDistBetweenPlanes},
		{"max_deviation_inlier_line_check", cfg.MaxDeviationInlierLineCheck},
		{"extension_length_for_edge_or_intersection", cfg.ExtensionLengthForEdgeOrIntersect},
		{"max_rating_valid_line", cfg.MaxRatingValidLine},
	}
	for _, p := range positive {
		if p.value <= 0 {
			err = multierr.Append(err, errors.Errorf("%s must be positive, got %v", p.name, p.value))
		}
	}
	if cfg.RectangleOffsetPixels < 0 {
		err = multierr.Append(err, errors.Errorf("rectangle_offset_pixels cannot be less than 0, got %v", cfg.RectangleOffsetPixels))
	}
	if cfg.MinPointsInLine <= 0 {
		err = multierr.Append(err, errors.Errorf("min_points_in_line must be positive, got %d", cfg.MinPointsInLine))
	}
	if cfg.MinLengthLine3D < 0 || cfg.MinPixelLengthLine3DReprojected < 0 {
		err = multierr.Append(err, errors.New("minimum line lengths cannot be less than 0"))
	}
	if cfg.MinPointsInRect < 0 || cfg.MinPointsInProlongedRect < 0 || cfg.MaxPointsForEmptyRectangle < 0 {
		err = multierr.Append(err, errors.New("point counts cannot be less than 0"))
	}
	if cfg.ShrinkCoefficient <= 0 || cfg.ShrinkCoefficient > 1 {
		err = multierr.Append(err, errors.Errorf("shrink_coefficient must be in (0, 1], got %v", cfg.ShrinkCoefficient))
	}
	if cfg.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("workers cannot be less than 0, got %d", cfg.Workers))
	}
	if strategy, parseErr := ParseMergeStrategy(string(cfg.MergeStrategy)); parseErr != nil {
		err = multierr.Append(err, parseErr)
	} else if strategy != MergeNone {
		if cfg.MergeMinCosSquared <= 0 || cfg.MergeMinCosSquared > 1 {
			err = multierr.Append(err, errors.Errorf("merge_min_cos_squared must be in (0, 1], got %v", cfg.MergeMinCosSquared))
		}
		if cfg.MergeMaxSquaredDistance <= 0 {
			err = multierr.Append(err, errors.Errorf("merge_max_squared_distance must be positive, got %v", cfg.MergeMaxSquaredDistance))
		}
	}
	return err
}

// NewConfigFromJSONFile reads a JSON file over the default configuration, so a file only needs
// the fields it changes.
func NewConfigFromJSONFile(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	data, err := io.ReadAll(f)
	if err != nil {
		return Config{}, errors.Wrap(err, "error reading JSON data")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "error parsing JSON string")
	}
	if err := cfg.CheckValid(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid line detection config in %q", path)
	}
	return cfg, nil
}
