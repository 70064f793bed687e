package detect2d

import (
	"image"
	"math"

	"go.viam.com/linedetection/rimage"
	"go.viam.com/linedetection/vision/lines2d"
)

// detectFLD links Canny edges of the unblurred image into chains and cuts the chains wherever a
// pixel strays more than FLDDistanceThreshold from the chord. The chords are the segments.
func detectFLD(gray *image.Gray, cfg Config) []lines2d.Line {
	grad := rimage.SobelGradient(gray)
	edges := cannyEdges(&grad, cfg.FLDCannyThreshold1, cfg.FLDCannyThreshold2)
	minPixels := int(math.Max(2, math.Ceil(cfg.FLDLengthThreshold)))
	var lines []lines2d.Line
	for _, chain := range traceChains(edges, minPixels) {
		for _, r := range splitChain(chain, cfg.FLDDistanceThreshold) {
			line := lineBetween(chain[r[0]], chain[r[1]])
			if line.Length() >= cfg.FLDLengthThreshold {
				lines = append(lines, line)
			}
		}
	}
	return lines
}
