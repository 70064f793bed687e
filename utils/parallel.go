package utils

import (
	"context"
	"image"
	"math"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelFactor is the number of goroutines GroupWorkParallel splits work over.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

type (
	// BeforeParallelGroupWorkFunc executes before any work starts with the number of groups.
	BeforeParallelGroupWorkFunc func(numGroups int)
	// MemberWorkFunc runs for each work item (member) of a group.
	MemberWorkFunc func(memberNum, workNum int)
	// GroupWorkDoneFunc runs when a single group's work is done; helpful for merge stages.
	GroupWorkDoneFunc func()
	// GroupWorkFunc runs to determine what work members should do, if any.
	GroupWorkFunc func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc)
)

// GroupWorkParallel splits [0, totalSize) into contiguous groups, one goroutine each. The last
// group takes the remainder. Work stops early once ctx is done, and ctx.Err() is returned.
func GroupWorkParallel(ctx context.Context, totalSize int, before BeforeParallelGroupWorkFunc, groupWork GroupWorkFunc) error {
	numGroups := ParallelFactor
	if totalSize < numGroups {
		numGroups = int(math.Max(1, float64(totalSize)))
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups
	if before != nil {
		before(numGroups)
	}

	var wait sync.WaitGroup
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			memberWork, groupWorkDone := groupWork(groupNum, to-from, from, to)
			if memberWork != nil {
				for workNum := from; workNum < to && ctx.Err() == nil; workNum++ {
					memberWork(workNum-from, workNum)
				}
			}
			if groupWorkDone != nil {
				groupWorkDone()
			}
		})
	}
	wait.Wait()
	return ctx.Err()
}

// ParallelForEachPixel calls f for every position of an image of the given size. Rows are spread
// over GroupWorkParallel, so f must be safe to call from several goroutines.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	//nolint:errcheck
	GroupWorkParallel(context.Background(), size.Y, nil, func(_, _, _, _ int) (MemberWorkFunc, GroupWorkDoneFunc) {
		return func(_, y int) {
			for x := 0; x < size.X; x++ {
				f(x, y)
			}
		}, nil
	})
}
