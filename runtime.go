package procfork

import (
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/viant/procfork/model/acct"
	"github.com/viant/procfork/model/snapshot"
	"github.com/viant/procfork/runtime/process"
	"github.com/viant/procfork/service/dao"
	"github.com/viant/procfork/service/fork"
	"github.com/viant/procfork/service/lifecycle"
	"github.com/viant/procfork/service/reaper"
	"github.com/viant/procfork/service/table"
	"github.com/viant/procfork/tracing"
)

// Runtime represents the process runtime: the table, the fork engine and the
// lifecycle services around them
type Runtime struct {
	table     *table.Table
	forker    *fork.Service
	lifecycle *lifecycle.Service
	reaper    *reaper.Service
	logger    *logrus.Logger
}

// Boot creates the root process with snap (a fresh Image when nil) and
// returns a context bound to it
func (r *Runtime) Boot(ctx context.Context, snap snapshot.Snapshot) (context.Context, error) {
	if root := r.table.Root(); root != process.NoPID {
		return nil, fmt.Errorf("root process %d: %w", root, ErrAlreadyBooted)
	}
	if snap == nil {
		snap = snapshot.NewImage()
	}
	pid, err := r.table.Allocate(process.NoPID, snap)
	if err != nil {
		return nil, err
	}
	r.lifecycle.OnFork(ctx, process.NoPID, pid)
	return process.WithPID(ctx, pid), nil
}

// Fork duplicates the calling process. The caller receives the child's pid;
// entry runs as the child with fork.Child() and a context bound to the child.
func (r *Runtime) Fork(ctx context.Context, entry fork.Entry) (fork.Result, error) {
	return r.forker.Fork(ctx, process.CurrentPID(ctx), entry)
}

// CurrentPID returns the pid of the calling process
func (r *Runtime) CurrentPID(ctx context.Context) process.PID {
	return process.CurrentPID(ctx)
}

// Exit marks the calling process exited with code. Forked processes exit
// when their entry returns; Exit serves processes that have no entry, such
// as the root.
func (r *Runtime) Exit(ctx context.Context, code int) error {
	pid := process.CurrentPID(ctx)
	if err := r.table.MarkExited(pid, code); err != nil {
		return err
	}
	r.lifecycle.OnExit(ctx, pid, code)
	return nil
}

// Wait blocks until child pid of the calling process exits, reaps it and
// returns its exit code
func (r *Runtime) Wait(ctx context.Context, pid process.PID) (code int, err error) {
	caller := process.CurrentPID(ctx)
	ctx, span := tracing.StartSpan(ctx, "runtime.Wait", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithPID("process.pid", uint32(caller))
	span.WithPID("process.child_pid", uint32(pid))

	self, err := r.table.Lookup(caller)
	if err != nil {
		return 0, err
	}
	if len(self.Children) == 0 {
		return 0, fmt.Errorf("wait %d: %w", pid, ErrNoChildren)
	}
	if !self.HasChild(pid) {
		return 0, fmt.Errorf("wait %d: %w", pid, ErrNotChild)
	}
	child, err := r.table.Lookup(pid)
	if err != nil {
		return 0, err
	}
	select {
	case <-child.Done():
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return r.reap(ctx, caller, child)
}

// WaitAny blocks until any child of the calling process exits, reaps it and
// returns its pid and exit code. Zombies are reaped lowest pid first.
func (r *Runtime) WaitAny(ctx context.Context) (pid process.PID, code int, err error) {
	caller := process.CurrentPID(ctx)
	ctx, span := tracing.StartSpan(ctx, "runtime.WaitAny", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithPID("process.pid", uint32(caller))

	for {
		child, err := r.nextExited(ctx, caller)
		if err != nil {
			return 0, 0, err
		}
		code, err = r.reap(ctx, caller, child)
		if errors.Is(err, ErrInvalidState) {
			// lost the race to another waiter
			continue
		}
		return child.PID, code, err
	}
}

func (r *Runtime) nextExited(ctx context.Context, caller process.PID) (*process.Process, error) {
	self, err := r.table.Lookup(caller)
	if err != nil {
		return nil, err
	}
	if len(self.Children) == 0 {
		return nil, ErrNoChildren
	}
	var children []*process.Process
	for _, pid := range self.ChildPIDs() {
		child, err := r.table.Lookup(pid)
		if err != nil {
			continue
		}
		if child.IsExited() {
			return child, nil
		}
		children = append(children, child)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("children of %d: %w", caller, ErrInvalidState)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	exited := make(chan *process.Process, len(children))
	for _, child := range children {
		go func(child *process.Process) {
			select {
			case <-child.Done():
				exited <- child
			case <-waitCtx.Done():
			}
		}(child)
	}
	select {
	case child := <-exited:
		return child, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runtime) reap(ctx context.Context, caller process.PID, child *process.Process) (int, error) {
	record, err := r.lifecycle.Reap(ctx, child.PID, caller)
	if record != nil {
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"pid": child.PID,
			}).WithError(err).Warn("accounting record not stored")
		}
		return record.ExitCode, nil
	}
	if errors.Is(err, table.ErrNotFound) {
		// an orphan may have been collected by the reaper first
		if reaped, aErr := r.lifecycle.Accounting(ctx, child.PID); aErr == nil && reaped.Orphaned && reaped.CreatedAt.Equal(child.CreatedAt) {
			return reaped.ExitCode, nil
		}
	}
	return 0, err
}

// Process returns a copy of the record of pid
func (r *Runtime) Process(ctx context.Context, pid process.PID) (*process.Process, error) {
	return r.table.Lookup(pid)
}

// Processes returns copies of all records, optionally filtered by "State"
func (r *Runtime) Processes(ctx context.Context, parameters ...*dao.Parameter) ([]*process.Process, error) {
	return r.table.List(parameters...), nil
}

// Accounting returns the accounting record of a reaped pid
func (r *Runtime) Accounting(ctx context.Context, pid process.PID) (*acct.Record, error) {
	return r.lifecycle.Accounting(ctx, pid)
}

// Start starts the orphan reaper and lifecycle event publication. Orphaned
// zombies left from before the start are reaped right away.
func (r *Runtime) Start(ctx context.Context) error {
	if r.reaper == nil {
		return nil
	}
	r.lifecycle.SetPublishing(true)
	if err := r.reaper.Start(ctx); err != nil {
		r.lifecycle.SetPublishing(false)
		return err
	}
	return nil
}

// Shutdown stops event publication and waits for the reaper workers to
// return, or for ctx to be done. Running processes are not affected.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.reaper == nil {
		return nil
	}
	r.lifecycle.SetPublishing(false)
	done := make(chan struct{})
	go func() {
		r.reaper.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reaper shutdown: %w", ctx.Err())
	}
}

// WaitAll blocks until every forked entry has returned
func (r *Runtime) WaitAll() {
	r.forker.WaitAll()
}
