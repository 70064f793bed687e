package linedetection

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestConfigCheckValid(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)
	test.That(t, cfg.RANSAC().Iterations, test.ShouldEqual, 300)
	test.That(t, cfg.Rectangles().MaxAbsoluteSize, test.ShouldEqual, 5)

	cfg.ShrinkCoefficient = 0
	cfg.MaxDistBetweenPlanes = -1
	cfg.MinPointsInLine = 0
	cfg.MaxErrorInlierRANSAC = 0
	err := cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "shrink_coefficient")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_dist_between_planes must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_points_in_line")
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_error_inlier_ransac")

	cfg = DefaultConfig()
	cfg.Workers = -2
	cfg.MinPointsInRect = -1
	err = cfg.CheckValid()
	test.That(t, err.Error(), test.ShouldContainSubstring, "workers")
	test.That(t, err.Error(), test.ShouldContainSubstring, "point counts")

	cfg = DefaultConfig()
	cfg.MergeStrategy = "sideways"
	test.That(t, cfg.CheckValid().Error(), test.ShouldContainSubstring, `unknown merge strategy "sideways"`)
	cfg.MergeStrategy = MergeAtTheEnd
	cfg.MergeMaxSquaredDistance = 0
	test.That(t, cfg.CheckValid().Error(), test.ShouldContainSubstring, "merge_max_squared_distance")
	// the merge thresholds are unused without a strategy
	cfg.MergeStrategy = ""
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)
}

func TestParseMergeStrategy(t *testing.T) {
	for name, expected := range map[string]MergeStrategy{
		"":           MergeNone,
		"none":       MergeNone,
		"at_the_end": MergeAtTheEnd,
		"on_the_fly": MergeOnTheFly,
	} {
		strategy, err := ParseMergeStrategy(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, strategy, test.ShouldEqual, expected)
	}
	_, err := ParseMergeStrategy("AT_THE_END")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewConfigFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.json")
	err := os.WriteFile(path, []byte(`{"num_iter_ransac": 50, "min_length_line_3D": 0.1, "workers": 2}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := NewConfigFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.NumIterRANSAC, test.ShouldEqual, 50)
	test.That(t, cfg.MinLengthLine3D, test.ShouldEqual, 0.1)
	test.That(t, cfg.Workers, test.ShouldEqual, 2)
	// everything else keeps its default
	test.That(t, cfg.MaxErrorInlierRANSAC, test.ShouldEqual, DefaultConfig().MaxErrorInlierRANSAC)

	_, err = NewConfigFromJSONFile(filepath.Join(dir, "missing.json"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "error opening JSON file")

	err = os.WriteFile(path, []byte(`{"num_iter_ransac": `), 0o600)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewConfigFromJSONFile(path)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error parsing JSON string")

	err = os.WriteFile(path, []byte(`{"shrink_coefficient": 2}`), 0o600)
	test.That(t, err, test.ShouldBeNil)
	_, err = NewConfigFromJSONFile(path)
	test.That(t, err.Error(), test.ShouldContainSubstring, "shrink_coefficient must be in (0, 1]")
}
