package segmentation

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// ClusterDistanceFromMean decides whether a set of points forms a single connected component.
// The points are ordered by their distance to the running mean; a jump between consecutive
// distances larger than the maximum gap splits the set.
type ClusterDistanceFromMean struct {
	maxGap float64
	points []r3.Vector
	sum    r3.Vector
}

// NewClusterDistanceFromMean returns an empty cluster test with the given maximum gap.
func NewClusterDistanceFromMean(maxGap float64) *ClusterDistanceFromMean {
	return &ClusterDistanceFromMean{maxGap: maxGap}
}

// Clear removes all points.
func (c *ClusterDistanceFromMean) Clear() {
	c.points = c.points[:0]
	c.sum = r3.Vector{}
}

// AddPoints adds points and updates the running mean.
func (c *ClusterDistanceFromMean) AddPoints(points ...r3.Vector) {
	for _, pt := range points {
		c.points = append(c.points, pt)
		c.sum = c.sum.Add(pt)
	}
}

// Len returns the number of points.
func (c *ClusterDistanceFromMean) Len() int {
	return len(c.points)
}

// Mean returns the mean of the points added so far.
func (c *ClusterDistanceFromMean) Mean() r3.Vector {
	if len(c.points) == 0 {
		return r3.Vector{}
	}
	return c.sum.Mul(1 / float64(len(c.points)))
}

// SingleConnectedComponent reports whether no gap between consecutive sorted distances to the
// mean exceeds the maximum gap. Sets of fewer than two points are trivially connected.
func (c *ClusterDistanceFromMean) SingleConnectedComponent() bool {
	if len(c.points) < 2 {
		return true
	}
	mean := c.Mean()
	dists := make([]float64, len(c.points))
	for i, pt := range c.points {
		dists[i] = pt.Sub(mean).Norm()
	}
	sort.Float64s(dists)
	gaps := make([]float64, len(dists)-1)
	floats.SubTo(gaps, dists[1:], dists[:len(dists)-1])
	return floats.Max(gaps) <= c.maxGap
}
