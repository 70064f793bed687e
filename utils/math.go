// Package utils contains small numeric and concurrency helpers shared by the
// line detection packages.
package utils

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func AbsInt(n int) int {
	if n < 0 {
		return -1 * n
	}
	return n
}

func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float64AlmostEqual compares two floats within the given epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// RoundToPrecision rounds v to the given number of decimals.
func RoundToPrecision(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}

// SampleNUniqueInts draws n distinct indices from [0, total) using the given rand.Rand.
// It panics if n > total.
func SampleNUniqueInts(n, total int, r *rand.Rand) []int {
	if n > total {
		panic("cannot sample more unique elements than available")
	}
	picked := make([]int, 0, n)
	seen := make(map[int]struct{}, n)
	for len(picked) < n {
		idx := SampleRandomIntRange(0, total-1, r)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		picked = append(picked, idx)
	}
	return picked
}
