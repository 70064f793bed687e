package lines2d

import (
	"math"
)

// Merge collapses near duplicate lines. With atTheEnd the lines are grouped into clusters first
// and every cluster is replaced by its bounding line; otherwise lines are merged into the
// running clusters as they come.
func Merge(lines []Line, atTheEnd bool, cfg EqualityConfig) []Line {
	if atTheEnd {
		return MergeAtTheEnd(lines, cfg)
	}
	return MergeOnTheFly(lines, cfg)
}

// MergeAtTheEnd grows a cluster from every line not yet assigned, adding every line equal to any
// cluster member until no more lines join, and outputs one bounding line per cluster. Lines that
// match nothing are returned unchanged. A bounding line can match lines none of its members
// matched, so passes repeat until the count stops dropping; merging the output again is a no-op.
func MergeAtTheEnd(lines []Line, cfg EqualityConfig) []Line {
	return mergeUntilStable(lines, cfg, mergeAtTheEndOnce)
}

// MergeOnTheFly compares every line with the clusters formed so far and merges it into each one
// it matches. When a line matches several clusters they all collapse into the last one. Passes
// repeat like in MergeAtTheEnd.
func MergeOnTheFly(lines []Line, cfg EqualityConfig) []Line {
	return mergeUntilStable(lines, cfg, mergeOnTheFlyOnce)
}

// mergeUntilStable runs pass until it leaves the number of lines unchanged. A pass that merges
// nothing returns its input, so the result is a fixed point of pass.
func mergeUntilStable(lines []Line, cfg EqualityConfig, pass func([]Line, EqualityConfig) []Line) []Line {
	merged := pass(lines, cfg)
	for len(merged) < len(lines) {
		lines = merged
		merged = pass(lines, cfg)
	}
	return merged
}

func mergeAtTheEndOnce(lines []Line, cfg EqualityConfig) []Line {
	assigned := make([]bool, len(lines))
	out := make([]Line, 0, len(lines))
	for i := range lines {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		cluster := []Line{lines[i]}
		for grown := true; grown; {
			grown = false
			for j := i + 1; j < len(lines); j++ {
				if assigned[j] {
					continue
				}
				for _, member := range cluster {
					if AreLinesEqual(member, lines[j], cfg) {
						cluster = append(cluster, lines[j])
						assigned[j] = true
						grown = true
						break
					}
				}
			}
		}
		if len(cluster) == 1 {
			out = append(out, cluster[0])
			continue
		}
		out = append(out, boundingLine(cluster...))
	}
	return out
}

func mergeOnTheFlyOnce(lines []Line, cfg EqualityConfig) []Line {
	clusters := make([]Line, 0, len(lines))
	for _, l := range lines {
		current := l
		currentIdx := -1
		for i := 0; i < len(clusters); i++ {
			if !AreLinesEqual(current, clusters[i], cfg) {
				continue
			}
			clusters[i] = boundingLine(current, clusters[i])
			current = clusters[i]
			if currentIdx >= 0 {
				clusters = append(clusters[:currentIdx], clusters[currentIdx+1:]...)
				i--
			}
			currentIdx = i
		}
		if currentIdx < 0 {
			clusters = append(clusters, current)
		}
	}
	return clusters
}

// boundingLine returns the diagonal of the bounding box of the lines, oriented as the sum of
// their slopes.
func boundingLine(lines ...Line) Line {
	xMin, yMin := math.Inf(1), math.Inf(1)
	xMax, yMax := math.Inf(-1), math.Inf(-1)
	slope := 0.
	for _, l := range lines {
		for _, pt := range [2]struct{ x, y float64 }{{l.Start.X, l.Start.Y}, {l.End.X, l.End.Y}} {
			xMin, xMax = math.Min(xMin, pt.x), math.Max(xMax, pt.x)
			yMin, yMax = math.Min(yMin, pt.y), math.Max(yMax, pt.y)
		}
		slope += l.Slope()
	}
	if slope > 0 {
		return NewLine(xMin, yMin, xMax, yMax)
	}
	return NewLine(xMin, yMax, xMax, yMin)
}
