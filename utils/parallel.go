package utils

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

type (
	// BeforeParallelGroupWorkFunc executes before any work starts with the calculated group size.
	BeforeParallelGroupWorkFunc func(groupSize int)
	// MemberWorkFunc runs for each work item (member) of a group.
	MemberWorkFunc func(memberNum, workNum int)
	// GroupWorkDoneFunc runs when a single group's work is done; helpful for merge stages.
	GroupWorkDoneFunc func()
	// GroupWorkFunc runs to determine what work members should do, if any.
	GroupWorkFunc func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc)
)

// GroupWorkParallel splits totalSize work items into contiguous groups, one per worker, and
// runs them concurrently. A panic in any group is recovered and returned as an error once every other
// group has finished. The number of groups is at most maxGroups (ParallelFactor when
// maxGroups <= 0) and never more than totalSize. Work items are covered exactly once.
func GroupWorkParallel(
	ctx context.Context,
	totalSize, maxGroups int,
	before BeforeParallelGroupWorkFunc,
	groupWork GroupWorkFunc,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if maxGroups <= 0 {
		maxGroups = ParallelFactor
	}
	numGroups := maxGroups
	if totalSize < numGroups {
		numGroups = totalSize
	}
	if before != nil {
		before(numGroups)
	}
	if numGroups == 0 {
		return nil
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var (
		wait     sync.WaitGroup
		panicMu  sync.Mutex
		panicErr error
	)
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		groupNumCopy := groupNum
		// Done is called at the end of the work or by the panic callback, never both
		utils.PanicCapturingGoWithCallback(func() {
			memberWork, groupWorkDone := groupWork(groupNumCopy, to-from, from, to)
			if memberWork != nil {
				memberNum := 0
				for workNum := from; workNum < to; workNum++ {
					memberWork(memberNum, workNum)
					memberNum++
				}
			}
			if groupWorkDone != nil {
				groupWorkDone()
			}
			wait.Done()
		}, func(err interface{}) {
			panicMu.Lock()
			if panicErr == nil {
				panicErr = errors.Errorf("parallel group %d panicked: %v", groupNumCopy, err)
			}
			panicMu.Unlock()
			wait.Done()
		})
	}
	wait.Wait()
	return panicErr
}
