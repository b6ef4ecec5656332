package table

import "github.com/viant/procfork/runtime/process"

// pidAllocator hands out pids from [1, max] in increasing order, wrapping to
// 1 once max was handed out. It is not safe for concurrent use; the table
// calls it under its write lock.
type pidAllocator struct {
	max  process.PID
	next process.PID
}

func newPIDAllocator(max process.PID) *pidAllocator {
	return &pidAllocator{max: max, next: 1}
}

// allocate returns the next pid for which inUse is false. A full cycle over
// the pid space without a free number reports false.
func (a *pidAllocator) allocate(inUse func(process.PID) bool) (process.PID, bool) {
	for i := uint64(0); i < uint64(a.max); i++ {
		candidate := a.next
		a.advance()
		if !inUse(candidate) {
			return candidate, true
		}
	}
	return process.NoPID, false
}

func (a *pidAllocator) advance() {
	if a.next >= a.max {
		a.next = 1
		return
	}
	a.next++
}
