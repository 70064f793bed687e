// Package segmentation implements the robust plane estimation used to find the surfaces on either
// side of an image line.
package segmentation

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/utils"
)

// numberOfModelParams is the size of a minimal plane sample.
const numberOfModelParams = 3

// RANSACConfig holds the parameters of PlaneRANSAC.
type RANSACConfig struct {
	// Iterations caps the number of sampled hypotheses.
	Iterations int `json:"num_iter_ransac"`
	// MaxInlierError is the largest point to plane distance of an inlier.
	MaxInlierError float64 `json:"max_error_inlier_ransac"`
	// EarlyStopInlierFraction ends sampling once the best model has more inliers than this
	// fraction of the points.
	EarlyStopInlierFraction float64 `json:"inlier_max_ransac"`
	// MinInlierFraction is the inlier fraction the final model must exceed.
	MinInlierFraction float64 `json:"min_inlier_ransac"`
	// MinInliers is the smallest inlier count a hypothesis needs to be adopted.
	MinInliers int `json:"min_num_inliers"`
	// MaxClusterGap is the largest allowed jump in the sorted distances of the inliers to their mean.
	MaxClusterGap float64 `json:"max_discont_in_point_to_mean_distance_connected_components"`
	// MinSampleDistance and MaxSampleCosTheta reject degenerate three point samples.
	MinSampleDistance float64 `json:"min_distance_between_points_hessian"`
	MaxSampleCosTheta float64 `json:"max_cos_theta_hessian_computation"`
	// Seed initializes the generator of every PlaneRANSAC call.
	Seed int64 `json:"seed"`
}

// DefaultRANSACConfig returns the parameters used by the line detector.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{
		Iterations:              300,
		MaxInlierError:          0.005,
		EarlyStopInlierFraction: 0.8,
		MinInlierFraction:       0.1,
		MinInliers:              6,
		MaxClusterGap:           0.1,
		MinSampleDistance:       1e-6,
		MaxSampleCosTheta:       0.994,
		Seed:                    1,
	}
}

// CheckValid checks the parameters for values PlaneRANSAC cannot work with.
func (cfg *RANSACConfig) CheckValid() error {
	var err error
	if cfg.Iterations <= 0 {
		err = multierr.Append(err, errors.Errorf("num_iter_ransac must be positive, got %d", cfg.Iterations))
	}
	if cfg.MaxInlierError <= 0 {
		err = multierr.Append(err, errors.Errorf("max_error_inlier_ransac must be positive, got %v", cfg.MaxInlierError))
	}
	if cfg.MinInlierFraction < 0 || cfg.MinInlierFraction > 1 {
		err = multierr.Append(err, errors.Errorf("min_inlier_ransac must be between 0 and 1, got %v", cfg.MinInlierFraction))
	}
	if cfg.EarlyStopInlierFraction <= 0 || cfg.EarlyStopInlierFraction > 1 {
		err = multierr.Append(err, errors.Errorf("inlier_max_ransac must be in (0, 1], got %v", cfg.EarlyStopInlierFraction))
	}
	if cfg.MinInliers < 0 {
		err = multierr.Append(err, errors.Errorf("min_num_inliers cannot be less than 0, got %d", cfg.MinInliers))
	}
	if cfg.MaxClusterGap <= 0 {
		err = multierr.Append(err, errors.Errorf(
			"max_discont_in_point_to_mean_distance_connected_components must be positive, got %v", cfg.MaxClusterGap))
	}
	if cfg.MaxSampleCosTheta <= 0 || cfg.MaxSampleCosTheta > 1 {
		err = multierr.Append(err, errors.Errorf("max_cos_theta_hessian_computation must be in (0, 1], got %v", cfg.MaxSampleCosTheta))
	}
	return err
}

// PlaneRANSAC finds the plane supported by most of the points whose inliers form one connected
// component, refit on all of its inliers. It returns the plane and its inliers, or false when
// there are at most three points or the inliers are not more than MinInlierFraction of the points.
//
// Each call seeds its own generator with cfg.Seed, so results only depend on the input and
// concurrent calls do not share state.
func PlaneRANSAC(points []r3.Vector, cfg RANSACConfig) (spatialmath.Plane, []r3.Vector, bool) {
	n := len(points)
	if n <= numberOfModelParams {
		return spatialmath.Plane{}, nil, false
	}
	inliers := bestInliers(points, cfg)
	if float64(len(inliers)) <= cfg.MinInlierFraction*float64(n) {
		return spatialmath.Plane{}, nil, false
	}
	plane, ok := spatialmath.HessianNormalFormOfPlane(inliers, cfg.MinSampleDistance, cfg.MaxSampleCosTheta)
	if !ok {
		return spatialmath.Plane{}, nil, false
	}
	return plane, inliers, true
}

// RANSACInliers returns the largest connected set of points close to one sampled plane, without
// refitting the plane. It returns nil for at most three points or when no hypothesis reaches
// MinInliers.
func RANSACInliers(points []r3.Vector, cfg RANSACConfig) []r3.Vector {
	if len(points) <= numberOfModelParams {
		return nil
	}
	return bestInliers(points, cfg)
}

func bestInliers(points []r3.Vector, cfg RANSACConfig) []r3.Vector {
	r := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec
	n := len(points)
	cluster := NewClusterDistanceFromMean(cfg.MaxClusterGap)
	sample := make([]r3.Vector, numberOfModelParams)
	var inliers []r3.Vector
	candidates := make([]r3.Vector, 0, n)

	for iter := 0; iter < cfg.Iterations; iter++ {
		for i, idx := range utils.SampleNUniqueInts(numberOfModelParams, n, r) {
			sample[i] = points[idx]
		}
		// colinear samples are skipped
		plane, ok := spatialmath.HessianNormalFormOfPlane(sample, cfg.MinSampleDistance, cfg.MaxSampleCosTheta)
		if !ok {
			continue
		}
		candidates = candidates[:0]
		for _, pt := range points {
			if math.Abs(plane.Distance(pt)) < cfg.MaxInlierError {
				candidates = append(candidates, pt)
			}
		}
		if len(candidates) > len(inliers) && len(candidates) >= cfg.MinInliers {
			cluster.Clear()
			cluster.AddPoints(candidates...)
			if cluster.SingleConnectedComponent() {
				inliers = append(inliers[:0:0], candidates...)
			}
		}
		if float64(len(inliers)) > cfg.EarlyStopInlierFraction*float64(n) {
			break
		}
	}
	return inliers
}
