package detect2d

import (
	"image"
	"math"
	"sort"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

type houghPeak struct {
	theta int
	rho   int
	votes int
}

func detectHough(gray *image.Gray, cfg Config) []lines2d.Line {
	grad := rimage.SobelGradient(rimage.Blur(gray, cfg.BlurSigma))
	edges := cannyEdges(&grad, cfg.CannyThreshold1, cfg.CannyThreshold2)
	return houghSegments(edges, cfg)
}

// houghSegments votes every edge pixel into a (theta, rho) accumulator and turns the peaks,
// strongest first, into segments. Each edge pixel ends up in at most one segment; runs of pixels
// along a peak line are split at gaps longer than HoughMaxLineGap.
func houghSegments(edges edgeMap, cfg Config) []lines2d.Line {
	points := edges.points()
	if len(points) == 0 {
		return nil
	}
	numAngle := int(math.Round(math.Pi / cfg.HoughTheta))
	if numAngle < 1 {
		numAngle = 1
	}
	maxRho := math.Hypot(float64(edges.width), float64(edges.height))
	numRho := int(math.Ceil(2*maxRho/cfg.HoughRho)) + 1
	cosTable := make([]float64, numAngle)
	sinTable := make([]float64, numAngle)
	for t := 0; t < numAngle; t++ {
		theta := float64(t) * cfg.HoughTheta
		cosTable[t], sinTable[t] = math.Cos(theta), math.Sin(theta)
	}
	rhoIndex := func(rho float64) int {
		return int(math.Round((rho + maxRho) / cfg.HoughRho))
	}

	acc := make([]int, numAngle*numRho)
	for _, p := range points {
		for t := 0; t < numAngle; t++ {
			r := rhoIndex(float64(p.X)*cosTable[t] + float64(p.Y)*sinTable[t])
			acc[t*numRho+r]++
		}
	}

	var peaks []houghPeak
	for t := 0; t < numAngle; t++ {
		for r := 0; r < numRho; r++ {
			votes := acc[t*numRho+r]
			if votes < cfg.HoughThreshold || !isLocalMaximum(acc, numAngle, numRho, t, r) {
				continue
			}
			peaks = append(peaks, houghPeak{theta: t, rho: r, votes: votes})
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].votes > peaks[j].votes })

	type candidate struct {
		idx int
		t   float64
	}
	tolerance := math.Max(cfg.HoughRho, 1)
	used := make([]bool, len(points))
	var lines []lines2d.Line
	for _, peak := range peaks {
		cosT, sinT := cosTable[peak.theta], sinTable[peak.theta]
		rho := float64(peak.rho)*cfg.HoughRho - maxRho
		var cands []candidate
		for i, p := range points {
			if used[i] {
				continue
			}
			x, y := float64(p.X), float64(p.Y)
			if math.Abs(x*cosT+y*sinT-rho) <= tolerance {
				cands = append(cands, candidate{idx: i, t: -x*sinT + y*cosT})
			}
		}
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].t < cands[j].t })

		emit := func(run []candidate) {
			if len(run) < 2 {
				return
			}
			line := lineBetween(points[run[0].idx], points[run[len(run)-1].idx])
			if line.Length() < cfg.HoughMinLineLength {
				return
			}
			for _, c := range run {
				used[c.idx] = true
			}
			lines = append(lines, line)
		}
		runStart := 0
		for k := 1; k <= len(cands); k++ {
			if k == len(cands) || cands[k].t-cands[k-1].t > cfg.HoughMaxLineGap {
				emit(cands[runStart:k])
				runStart = k
			}
		}
	}
	return lines
}

// isLocalMaximum compares a bin against its 8 neighbors. Of equal neighbors only the one with
// the lowest index counts as a maximum.
func isLocalMaximum(acc []int, numAngle, numRho, t, r int) bool {
	idx := t*numRho + r
	votes := acc[idx]
	for dt := -1; dt <= 1; dt++ {
		for dr := -1; dr <= 1; dr++ {
			tt, rr := t+dt, r+dr
			if (dt == 0 && dr == 0) || tt < 0 || rr < 0 || tt >= numAngle || rr >= numRho {
				continue
			}
			other := tt*numRho + rr
			if acc[other] > votes || (acc[other] == votes && other < idx) {
				return false
			}
		}
	}
	return true
}
