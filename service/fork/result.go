package fork

import (
	"fmt"
	"github.com/viant/procfork/runtime/process"
)

// Result is what each side of a fork observes: the parent path sees the new
// child's pid, the child path sees the zero pid. The zero Result belongs to
// neither side; Fork returns it with every error.
type Result struct {
	pid   process.PID
	child bool
}

// Parent returns the parent-path result for child
func Parent(child process.PID) Result {
	return Result{pid: child}
}

// Child returns the child-path result
func Child() Result {
	return Result{child: true}
}

// IsChild returns true on the child path
func (r Result) IsChild() bool {
	return r.child
}

// IsParent returns true on the parent path
func (r Result) IsParent() bool {
	return !r.child && r.pid != process.NoPID
}

// PID returns the raw fork return value: the child pid on the parent path,
// zero on the child path
func (r Result) PID() process.PID {
	return r.pid
}

// ChildPID returns the child pid; ok is false unless on the parent path
func (r Result) ChildPID() (process.PID, bool) {
	return r.pid, r.IsParent()
}

func (r Result) String() string {
	switch {
	case r.IsChild():
		return "child"
	case r.IsParent():
		return fmt.Sprintf("parent(%d)", r.pid)
	}
	return "none"
}
