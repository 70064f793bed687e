package linedetection

import (
	"context"

	"go.viam.com/linedetection/pointcloud"
	"go.viam.com/linedetection/vision/lines2d"
)

// Detect3DLines runs every step between 2D detection and output on one frame. The 2D lines are
// merged with MergeStrategy, lines across a depth jump are dropped when CheckDiscont2D is set,
// the rest are lifted, on Workers goroutines when parallel is set, and the lifted lines go
// through RunChecks. The returned 2D lines are paired by index with the 3D lines.
func (ld *LineDetector) Detect3DLines(
	ctx context.Context,
	cloud *pointcloud.Organized,
	lines []lines2d.Line,
	keepDirection, parallel bool,
) ([]lines2d.Line, []LineWithPlanes, *Statistics, error) {
	merged := ld.MergeLines(lines)
	if len(merged) < len(lines) {
		ld.logger.Debugw("merged 2D lines", "strategy", ld.cfg.MergeStrategy, "before", len(lines), "after", len(merged))
	}
	discarded := 0
	if ld.cfg.CheckDiscont2D {
		kept := RunCheckOn2DLines(cloud, merged)
		discarded += len(merged) - len(kept)
		merged = kept
	}

	var (
		lifted2D []lines2d.Line
		lifted3D []LineWithPlanes
		st       *Statistics
	)
	if parallel {
		var err error
		lifted2D, lifted3D, st, err = ld.Project2Dto3DWithPlanesParallel(ctx, cloud, merged, keepDirection)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		lifted2D, lifted3D, st = ld.Project2Dto3DWithPlanes(cloud, merged, keepDirection)
	}

	out2D, out3D := ld.RunChecks(cloud, lifted2D, lifted3D)
	st.DiscardedByChecks = discarded + len(lifted3D) - len(out3D)
	return out2D, out3D, st, nil
}

// MergeLines merges near duplicate 2D lines with the configured strategy.
func (ld *LineDetector) MergeLines(lines []lines2d.Line) []lines2d.Line {
	switch ld.cfg.MergeStrategy {
	case MergeAtTheEnd:
		return lines2d.Merge(lines, true, ld.cfg.Equality())
	case MergeOnTheFly:
		return lines2d.Merge(lines, false, ld.cfg.Equality())
	default:
		return lines
	}
}

// RunChecks applies the enabled 3D checks to lifted lines paired by index with their 2D lines.
// The brute force check runs first and can trim a line; the reprojection check sees the trimmed line.
func (ld *LineDetector) RunChecks(
	cloud *pointcloud.Organized,
	lines2D []lines2d.Line,
	lines3D []LineWithPlanes,
) ([]lines2d.Line, []LineWithPlanes) {
	if ld.cfg.CheckBruteForce {
		lines2D, lines3D = ld.RunCheckOn3DLines(cloud, lines2D, lines3D)
	}
	if ld.cfg.CheckReprojection {
		lines2D, lines3D = ld.RunCheckOn3DLinesWith2DInfo(cloud, lines2D, lines3D)
	}
	return lines2D, lines3D
}
