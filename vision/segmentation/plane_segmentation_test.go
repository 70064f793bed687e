package segmentation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

// tiltedPlanePoints samples z = 0.1x + 2 on a regular grid.
func tiltedPlanePoints() []r3.Vector {
	pts := make([]r3.Vector, 0, 225)
	for i := 0; i < 15; i++ {
		for j := 0; j < 15; j++ {
			x, y := float64(i)*0.02, float64(j)*0.02
			pts = append(pts, r3.Vector{X: x, Y: y, Z: 0.1*x + 2})
		}
	}
	return pts
}

func TestRANSACConfig(t *testing.T) {
	cfg := DefaultRANSACConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)

	cfg.Iterations = 0
	err := cfg.CheckValid()
	test.That(t, err.Error(), test.ShouldContainSubstring, "num_iter_ransac must be positive")

	cfg = DefaultRANSACConfig()
	cfg.MinInlierFraction = 2
	cfg.MaxClusterGap = 0
	err = cfg.CheckValid()
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_inlier_ransac must be between 0 and 1")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_discont_in_point_to_mean_distance_connected_components")
}

func TestPlaneRANSAC(t *testing.T) {
	inliers := tiltedPlanePoints()
	r := rand.New(rand.NewSource(7))
	points := append([]r3.Vector{}, inliers...)
	for i := 0; i < 40; i++ {
		points = append(points, r3.Vector{X: r.Float64() * 0.3, Y: r.Float64() * 0.3, Z: 2.5 + r.Float64()})
	}
	r.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })

	cfg := DefaultRANSACConfig()
	plane, found, ok := PlaneRANSAC(points, cfg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(found), test.ShouldEqual, len(inliers))
	test.That(t, plane.Normal.Norm(), test.ShouldAlmostEqual, 1)

	truth := r3.Vector{X: 0.1, Y: 0, Z: -1}.Normalize()
	test.That(t, math.Abs(plane.Normal.Dot(truth)), test.ShouldBeGreaterThan, math.Cos(2*math.Pi/180))
	for _, pt := range inliers {
		test.That(t, math.Abs(plane.Distance(pt)), test.ShouldBeLessThan, 1e-6)
	}

	// every call seeds its own generator
	again, foundAgain, ok := PlaneRANSAC(points, cfg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, again, test.ShouldResemble, plane)
	test.That(t, foundAgain, test.ShouldResemble, found)
}

func TestPlaneRANSACFailures(t *testing.T) {
	cfg := DefaultRANSACConfig()

	_, _, ok := PlaneRANSAC([]r3.Vector{{X: 0}, {X: 1}, {Y: 1}}, cfg)
	test.That(t, ok, test.ShouldBeFalse)

	// colinear points never produce a hypothesis
	line := make([]r3.Vector, 20)
	for i := range line {
		line[i] = r3.Vector{X: float64(i) * 0.01, Z: 1}
	}
	_, _, ok = PlaneRANSAC(line, cfg)
	test.That(t, ok, test.ShouldBeFalse)

	// a plane that is supported but not by enough points
	cfg.MinInlierFraction = 0.995
	pts := tiltedPlanePoints()
	pts = append(pts, r3.Vector{X: 0.1, Y: 0.1, Z: 3}, r3.Vector{X: 0.2, Y: 0.1, Z: 3.2})
	_, _, ok = PlaneRANSAC(pts, cfg)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestClusterDistanceFromMean(t *testing.T) {
	cluster := NewClusterDistanceFromMean(0.1)
	test.That(t, cluster.SingleConnectedComponent(), test.ShouldBeTrue)

	cluster.AddPoints(tiltedPlanePoints()...)
	test.That(t, cluster.Len(), test.ShouldEqual, 225)
	test.That(t, cluster.Mean().X, test.ShouldAlmostEqual, 0.14)
	test.That(t, cluster.SingleConnectedComponent(), test.ShouldBeTrue)

	// a small far away patch on the same plane
	for i := 0; i < 20; i++ {
		x := 1 + float64(i%5)*0.01
		y := float64(i/5) * 0.01
		cluster.AddPoints(r3.Vector{X: x, Y: y, Z: 0.1*x + 2})
	}
	test.That(t, cluster.SingleConnectedComponent(), test.ShouldBeFalse)

	cluster.Clear()
	test.That(t, cluster.Len(), test.ShouldEqual, 0)
	test.That(t, cluster.Mean(), test.ShouldResemble, r3.Vector{})
}

func TestRANSACInliers(t *testing.T) {
	cfg := DefaultRANSACConfig()
	test.That(t, RANSACInliers([]r3.Vector{{X: 0}, {X: 1}, {Y: 1}}, cfg), test.ShouldBeNil)

	pts := tiltedPlanePoints()
	pts = append(pts, r3.Vector{X: 0.1, Y: 0.1, Z: 3}, r3.Vector{X: 0.2, Y: 0.1, Z: 3.2})
	inliers := RANSACInliers(pts, cfg)
	test.That(t, len(inliers), test.ShouldEqual, 225)

	// no minimum inlier fraction applies
	cfg.MinInlierFraction = 0.995
	test.That(t, len(RANSACInliers(pts, cfg)), test.ShouldEqual, 225)
}
