package linedetection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"

	"go.viam.com/linedetection/logging"
)

// ProlongationBucket groups the sixteen prolongation patterns of the classifier up to symmetry.
// A pattern lists whether the left and right patch stay on their planes before the start and
// after the end of a line, in the order left-before, right-before, left-after, right-after.
type ProlongationBucket int

// The buckets of ProlongationHistogram.
const (
	Bucket0000 ProlongationBucket = iota
	Bucket1000
	Bucket1100
	Bucket1010
	Bucket1001
	Bucket1110
	Bucket1111
	numBuckets
)

var bucketNames = [numBuckets]string{"0000", "1000", "1100", "1010", "1001", "1110", "1111"}

func (b ProlongationBucket) String() string {
	if b < 0 || b >= numBuckets {
		return "unknown"
	}
	return bucketNames[b]
}

// BucketForPattern maps a four character pattern of '0' and '1' to its bucket.
func BucketForPattern(pattern string) (ProlongationBucket, bool) {
	switch pattern {
	case "0000":
		return Bucket0000, true
	case "0001", "0010", "0100", "1000":
		return Bucket1000, true
	case "1100", "0011":
		return Bucket1100, true
	case "1010", "0101":
		return Bucket1010, true
	case "1001", "0110":
		return Bucket1001, true
	case "1110", "1101", "1011", "0111":
		return Bucket1110, true
	case "1111":
		return Bucket1111, true
	default:
		return 0, false
	}
}

// ProlongationHistogram counts the classified lines per pattern bucket.
type ProlongationHistogram [numBuckets]int

// Add counts one line with the given pattern. Malformed patterns are ignored.
func (h *ProlongationHistogram) Add(pattern string) {
	if b, ok := BucketForPattern(pattern); ok {
		h[b]++
	}
}

// Labels returns the bucket names in histogram order.
func (h *ProlongationHistogram) Labels() []string {
	return bucketNames[:]
}

// Total returns the number of counted lines.
func (h *ProlongationHistogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Statistics accumulates what happened to the lines of one or more frames.
type Statistics struct {
	// TypeCounts counts the 3D lines accepted by the lifter per type.
	TypeCounts            map[LineType]int
	DiscardedForConvexity int
	// DiscardedByChecks counts the lines Detect3DLines dropped in its validity checks.
	DiscardedByChecks int
	Prolongation      ProlongationHistogram
	// ProjectedLines counts accepted lines whose length is similar to the candidate they started from.
	ProjectedLines int
	// Candidates counts the 2D lines that reached the plane fitting stage.
	Candidates int
	// Lengths holds the 3D length of every accepted line.
	Lengths []float64
}

// NewStatistics returns empty statistics.
func NewStatistics() *Statistics {
	return &Statistics{TypeCounts: map[LineType]int{}}
}

// Reset clears every counter.
func (s *Statistics) Reset() {
	*s = Statistics{TypeCounts: map[LineType]int{}}
}

// Merge adds the counters of other into s.
func (s *Statistics) Merge(other *Statistics) {
	if other == nil {
		return
	}
	if s.TypeCounts == nil {
		s.TypeCounts = map[LineType]int{}
	}
	for t, c := range other.TypeCounts {
		s.TypeCounts[t] += c
	}
	s.DiscardedForConvexity += other.DiscardedForConvexity
	s.DiscardedByChecks += other.DiscardedByChecks
	for i, c := range other.Prolongation {
		s.Prolongation[i] += c
	}
	s.ProjectedLines += other.ProjectedLines
	s.Candidates += other.Candidates
	s.Lengths = append(s.Lengths, other.Lengths...)
}

func (s *Statistics) addLine(line LineWithPlanes) {
	if s == nil {
		return
	}
	if s.TypeCounts == nil {
		s.TypeCounts = map[LineType]int{}
	}
	s.TypeCounts[line.Type]++
	s.Lengths = append(s.Lengths, line.Line.Length())
}

// LengthSummary describes the lengths of the accepted lines.
type LengthSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// LengthSummary computes the spread of the accepted line lengths. It fails when no line was accepted.
func (s *Statistics) LengthSummary() (LengthSummary, error) {
	data := stats.Float64Data(s.Lengths)
	minLength, err := data.Min()
	if err != nil {
		return LengthSummary{}, err
	}
	maxLength, err := data.Max()
	if err != nil {
		return LengthSummary{}, err
	}
	mean, err := data.Mean()
	if err != nil {
		return LengthSummary{}, err
	}
	median, err := data.Median()
	if err != nil {
		return LengthSummary{}, err
	}
	return LengthSummary{Count: len(data), Min: minLength, Max: maxLength, Mean: mean, Median: median}, nil
}

// LengthHistogram buckets the accepted line lengths. It is empty when no line was accepted.
func (s *Statistics) LengthHistogram(bins int) histogram.Histogram {
	if len(s.Lengths) == 0 || bins <= 0 {
		return histogram.Histogram{}
	}
	return histogram.Hist(bins, s.Lengths)
}

// Table renders the per-type counts and the prolongation buckets as a text table.
func (s *Statistics) Table() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Counter", "Lines"})
	for _, lt := range LineTypes {
		t.AppendRow(table.Row{lt.String(), s.TypeCounts[lt]})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"candidates", s.Candidates})
	t.AppendRow(table.Row{"projected", s.ProjectedLines})
	t.AppendRow(table.Row{"discarded for convexity", s.DiscardedForConvexity})
	t.AppendRow(table.Row{"discarded by checks", s.DiscardedByChecks})
	t.AppendSeparator()
	for i, c := range s.Prolongation {
		t.AppendRow(table.Row{"prolongation " + ProlongationBucket(i).String(), c})
	}
	return t.Render()
}

func (s *Statistics) String() string {
	types := make([]LineType, 0, len(s.TypeCounts))
	for t := range s.TypeCounts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	var b strings.Builder
	fmt.Fprintf(&b, "candidates=%d projected=%d discarded_for_convexity=%d discarded_by_checks=%d",
		s.Candidates, s.ProjectedLines, s.DiscardedForConvexity, s.DiscardedByChecks)
	for _, t := range types {
		fmt.Fprintf(&b, " %s=%d", t, s.TypeCounts[t])
	}
	b.WriteString(" prolongation=[")
	for i, c := range s.Prolongation {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s:%d", ProlongationBucket(i), c)
	}
	b.WriteByte(']')
	return b.String()
}

// Log writes the statistics at info level.
func (s *Statistics) Log(logger logging.Logger) {
	keysAndValues := []interface{}{
		"candidates", s.Candidates,
		"projected", s.ProjectedLines,
		"discarded_for_convexity", s.DiscardedForConvexity,
		"discarded_by_checks", s.DiscardedByChecks,
		"prolongation", s.Prolongation,
	}
	for _, t := range LineTypes {
		keysAndValues = append(keysAndValues, strings.ToLower(t.String()), s.TypeCounts[t])
	}
	if summary, err := s.LengthSummary(); err == nil {
		keysAndValues = append(keysAndValues, "mean_length", summary.Mean, "median_length", summary.Median)
	}
	logger.Infow("line detection statistics", keysAndValues...)
}
