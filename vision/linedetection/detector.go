// Package linedetection lifts 2D image line segments to 3D lines using an organized point cloud
// of the same frame, and classifies every 3D line by the surfaces around it.
package linedetection

import (
	"context"
	"runtime"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/linedetection/logging"
	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/rimage/transform"
	"go.viam.com/linedetection/spatialmath"
	"go.viam.com/linedetection/vision/lines2d"
)

// originEpsilon is the distance under which a 3D endpoint counts as the no-depth sentinel.
const originEpsilon = 1e-3

// LineDetector holds the configuration and camera of a sequence of frames. It keeps no state
// between calls, so a single detector can process frames from several goroutines.
type LineDetector struct {
	cfg        Config
	projection *transform.ProjectionMatrix
	logger     logging.Logger
}

// NewLineDetector validates the configuration and returns a detector for the given camera.
func NewLineDetector(cfg Config, projection *transform.ProjectionMatrix, logger logging.Logger) (*LineDetector, error) {
	if projection == nil {
		return nil, errors.New("line detector needs a projection matrix")
	}
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid line detection config")
	}
	return &LineDetector{cfg: cfg, projection: projection, logger: logger}, nil
}

// Config returns the configuration of the detector.
func (ld *LineDetector) Config() Config {
	return ld.cfg
}

// Project2Dto3DWithPlanes lifts every 2D line to a 3D line with its planes. Lines are clipped to
// the cloud, shrunk, and matched with a first 3D guess from the cloud before the planes on both
// sides are estimated. It returns the 2D lines that produced a 3D line, paired by index with
// the 3D lines, and the statistics of the run.
func (ld *LineDetector) Project2Dto3DWithPlanes(
	cloud *pointcloud.Organized,
	lines []lines2d.Line,
	keepDirection bool,
) ([]lines2d.Line, []LineWithPlanes, *Statistics) {
	st := NewStatistics()
	prepared, candidates, ratings := ld.prepareLines(cloud, lines, keepDirection)
	var out2D []lines2d.Line
	var out3D []LineWithPlanes
	for i, l := range prepared {
		line3D, ok := ld.liftLine(cloud, l, candidates[i], ratings[i], st)
		if !ok {
			continue
		}
		out2D = append(out2D, l)
		out3D = append(out3D, line3D)
	}
	return out2D, out3D, st
}

// Project2Dto3DWithPlanesParallel is Project2Dto3DWithPlanes with the lines spread over
// Config.Workers goroutines. The output is the same as the sequential version.
func (ld *LineDetector) Project2Dto3DWithPlanesParallel(
	ctx context.Context,
	cloud *pointcloud.Organized,
	lines []lines2d.Line,
	keepDirection bool,
) ([]lines2d.Line, []LineWithPlanes, *Statistics, error) {
	prepared, candidates, ratings := ld.prepareLines(cloud, lines, keepDirection)

	type lifted struct {
		line  LineWithPlanes
		ok    bool
		stats *Statistics
	}
	results := make([]lifted, len(prepared))
	workers := ld.cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range prepared {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st := NewStatistics()
			line3D, ok := ld.liftLine(cloud, prepared[i], candidates[i], ratings[i], st)
			results[i] = lifted{line: line3D, ok: ok, stats: st}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	st := NewStatistics()
	var out2D []lines2d.Line
	var out3D []LineWithPlanes
	for i, res := range results {
		st.Merge(res.stats)
		if !res.ok {
			continue
		}
		out2D = append(out2D, prepared[i])
		out3D = append(out3D, res.line)
	}
	return out2D, out3D, st, nil
}

func (ld *LineDetector) prepareLines(
	cloud *pointcloud.Organized,
	lines []lines2d.Line,
	keepDirection bool,
) ([]lines2d.Line, []spatialmath.LineSegment, []float64) {
	clipped := lines2d.ClipAllToBounds(lines, cloud.Width(), cloud.Height(), keepDirection)
	shrunk := lines2d.Shrink(clipped, ld.cfg.ShrinkCoefficient, 1)
	candidates, ratings := Find3DLinesRated(cloud, shrunk)
	return shrunk, candidates, ratings
}

// liftLine runs plane estimation and line fitting for one prepared 2D line.
func (ld *LineDetector) liftLine(
	cloud *pointcloud.Organized,
	line2D lines2d.Line,
	candidate spatialmath.LineSegment,
	rating float64,
	st *Statistics,
) (LineWithPlanes, bool) {
	if line2D.IsZero() {
		return LineWithPlanes{}, false
	}
	if rating > ld.cfg.MaxRatingValidLine {
		ld.logger.Debugw("skipping line without a usable 3D guess", "line", line2D.String(), "rating", rating)
		return LineWithPlanes{}, false
	}
	patches := ld.FindInliersGiven2DLine(cloud, line2D)
	planesFound := patches.LeftFound && patches.RightFound
	switch {
	case !patches.LeftFound && !patches.RightFound:
		ld.logger.Debugw("no plane next to line", "line", line2D.String())
		return LineWithPlanes{}, false
	case !patches.LeftFound:
		patches.Left = patches.Right
	case !patches.RightFound:
		patches.Right = patches.Left
	}
	if st != nil {
		st.Candidates++
	}

	line3D, ok := ld.Find3DLineOnPlanes(cloud, patches.Right, patches.Left, candidate, line2D, planesFound, st)
	if !ok {
		ld.logger.Debugw("no 3D line on the planes", "line", line2D.String())
		return LineWithPlanes{}, false
	}
	line3D.Colors = patches.Colors
	if st != nil {
		st.addLine(line3D)
		if linesHaveSimilarLength(candidate, line3D.Line) {
			st.ProjectedLines++
		}
	}
	return line3D, true
}

// linesHaveSimilarLength reports whether the shorter line is at least half as long as the longer one.
func linesHaveSimilarLength(l1, l2 spatialmath.LineSegment) bool {
	return similarLengths(l1.Length(), l2.Length())
}

func similarLengths(a, b float64) bool {
	shorter, longer := a, b
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 {
		return false
	}
	return shorter/longer >= 0.5
}

// projectLine maps a 3D segment to the image.
func (ld *LineDetector) projectLine(l spatialmath.LineSegment) (lines2d.Line, bool) {
	start, ok := ld.projection.Project(l.Start)
	if !ok {
		return lines2d.Line{}, false
	}
	end, ok := ld.projection.Project(l.End)
	if !ok {
		return lines2d.Line{}, false
	}
	return lines2d.Line{Start: start, End: end}, true
}

// orientLike swaps the endpoints of l when its projection runs against ref.
func (ld *LineDetector) orientLike(l spatialmath.LineSegment, ref lines2d.Line) spatialmath.LineSegment {
	projected, ok := ld.projectLine(l)
	if !ok {
		return l
	}
	dist := func(a, b r2.Point) float64 { return a.Sub(b).Norm() }
	if dist(projected.Start, ref.End) < dist(projected.Start, ref.Start) &&
		dist(projected.End, ref.Start) < dist(projected.End, ref.End) {
		return l.Reversed()
	}
	return l
}
